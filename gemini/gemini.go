// Package gemini implements [dagtalk.Resolver] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, sending the tool specs as
// function declarations and the catalog inside the system instruction.
// Exactly one function call is accepted per resolution; a plain-text
// answer classifies the instruction as unsupported, with the model's
// text carried as the explanation.
package gemini

const defaultModel = "gemini-2.5-flash"
