package airflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dagtalk/dagtalk"
	"github.com/google/uuid"
)

// Interface compliance check.
var _ dagtalk.Orchestrator = (*Client)(nil)

// Client implements [dagtalk.Orchestrator] for the Airflow REST API.
type Client struct {
	baseURL    string
	username   string
	password   string
	token      string
	timeout    time.Duration
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithBasicAuth sets basic-auth credentials for every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) { c.username, c.password = username, password }
}

// WithToken sets a bearer token for every request. Takes precedence over
// basic auth when both are configured.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each call. The caller's context still applies; the
// earlier deadline wins. Zero disables the client-side bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithPageSize sets the page size used when listing DAGs.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// WithLogger sets the logger for request-level debug logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new Airflow [Client] with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		pageSize:   defaultPageSize,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListDags returns every DAG known to the orchestrator, aggregating all
// pages of the listing.
func (c *Client) ListDags(ctx context.Context) ([]dagtalk.Dag, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	c.logger.DebugContext(ctx, "listing dags")

	var out []dagtalk.Dag
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page apiDagList
		if err := c.get(ctx, "/dags", q, &page); err != nil {
			return nil, fmt.Errorf("airflow: list dags: %w", err)
		}
		for _, d := range page.Dags {
			out = append(out, dagFromAPI(d))
		}
		if len(page.Dags) == 0 {
			break
		}
		offset += len(page.Dags)
		if offset >= page.TotalEntries {
			break
		}
	}
	return out, nil
}

// TriggerDag starts a new run of the DAG. The run ID is generated client
// side so the run stays identifiable even when the acknowledgment is lost.
func (c *Client) TriggerDag(ctx context.Context, dag dagtalk.DagRef, conf map[string]string) (*dagtalk.RunResult, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	runID := newRunID(time.Now())
	if conf == nil {
		// the API requires a JSON object body even when there is no conf
		conf = map[string]string{}
	}

	c.logger.DebugContext(ctx, "triggering dag", "dag_id", dag, "run_id", runID)

	body, err := json.Marshal(apiTriggerRequest{DagRunID: runID, Conf: conf})
	if err != nil {
		return nil, fmt.Errorf("airflow: trigger %s: %w: %w", dag, dagtalk.ErrProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/dags/"+url.PathEscape(string(dag))+"/dagRuns", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("airflow: trigger %s: %w: %w", dag, dagtalk.ErrProtocol, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if requestNeverSent(err) {
			return nil, fmt.Errorf("airflow: trigger %s: %w: %w", dag, dagtalk.ErrTransport, err)
		}
		// The request may have reached the server. Ambiguity errs toward
		// outcome-unknown: re-querying a run that never started is harmless,
		// re-triggering one that did is not.
		partial := &dagtalk.RunResult{
			DagID:    dag,
			RunID:    runID,
			State:    dagtalk.RunUnknown,
			RawState: "",
			Conf:     conf,
		}
		return partial, fmt.Errorf("airflow: trigger %s: %w: %w: %w", dag, dagtalk.ErrOutcomeUnknown, dagtalk.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("airflow: trigger %s: %w", dag, c.statusError(resp))
	}

	var run apiDagRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("airflow: trigger %s: %w: decode response: %w", dag, dagtalk.ErrProtocol, err)
	}

	result := runFromAPI(run)
	c.logger.DebugContext(ctx, "triggered dag", "dag_id", dag, "run_id", result.RunID, "state", result.State)
	return result, nil
}

// RunStatus returns the current state of one DAG run.
func (c *Client) RunStatus(ctx context.Context, dag dagtalk.DagRef, runID string) (*dagtalk.RunResult, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	c.logger.DebugContext(ctx, "querying run", "dag_id", dag, "run_id", runID)

	var run apiDagRun
	path := "/dags/" + url.PathEscape(string(dag)) + "/dagRuns/" + url.PathEscape(runID)
	if err := c.get(ctx, path, nil, &run); err != nil {
		return nil, fmt.Errorf("airflow: run status %s/%s: %w", dag, runID, err)
	}
	return runFromAPI(run), nil
}

// DagStatus returns detailed status for one DAG, aggregating the DAG detail
// with its most recent run.
func (c *Client) DagStatus(ctx context.Context, dag dagtalk.DagRef) (*dagtalk.DagStatus, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	c.logger.DebugContext(ctx, "querying dag status", "dag_id", dag)

	var detail apiDag
	if err := c.get(ctx, "/dags/"+url.PathEscape(string(dag)), nil, &detail); err != nil {
		return nil, fmt.Errorf("airflow: dag status %s: %w", dag, err)
	}

	q := url.Values{}
	q.Set("order_by", "-execution_date")
	q.Set("limit", "1")
	var runs apiDagRunList
	if err := c.get(ctx, "/dags/"+url.PathEscape(string(dag))+"/dagRuns", q, &runs); err != nil {
		return nil, fmt.Errorf("airflow: dag status %s: %w", dag, err)
	}

	st := &dagtalk.DagStatus{
		ID:          dagtalk.DagRef(detail.DagID),
		DisplayName: displayName(detail),
		Paused:      detail.IsPaused,
		TotalRuns:   runs.TotalEntries,
	}
	if detail.NextDataIntervalStart != nil {
		st.NextDataIntervalStart = *detail.NextDataIntervalStart
	}
	if detail.NextDataIntervalEnd != nil {
		st.NextDataIntervalEnd = *detail.NextDataIntervalEnd
	}
	if len(runs.DagRuns) > 0 {
		last := runs.DagRuns[0]
		st.LastRunID = last.DagRunID
		st.LastRunState = dagtalk.ParseRunState(last.State)
		st.LastRunRawState = last.State
	}
	return st, nil
}

// get performs a GET request and decodes the 200 response into v.
// Returned errors are classified but not yet prefixed with the operation.
func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", dagtalk.ErrProtocol, err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", dagtalk.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %w", dagtalk.ErrProtocol, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}
}

// statusError maps a non-2xx response to a classified error.
func (c *Client) statusError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: HTTP %d (failed to read body: %v)", dagtalk.ErrProtocol, resp.StatusCode, err)
	}
	detail := string(body)
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Title != "" {
		detail = apiErr.Title
		if apiErr.Detail != "" {
			detail += ": " + apiErr.Detail
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", dagtalk.ErrNotFound, detail)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", dagtalk.ErrConflict, detail)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", dagtalk.ErrTransport, resp.StatusCode, detail)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", dagtalk.ErrTransport, resp.StatusCode, detail)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", dagtalk.ErrProtocol, resp.StatusCode, detail)
	}
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// requestNeverSent reports whether the error guarantees the request never
// left the client. Only dial failures qualify.
func requestNeverSent(err error) bool {
	var op *net.OpError
	return errors.As(err, &op) && op.Op == "dial"
}

// newRunID returns a client-generated run ID. Generating the ID on the
// client keeps a timed-out trigger re-queryable.
func newRunID(now time.Time) string {
	return fmt.Sprintf("manual__%s__%s", now.UTC().Format(time.RFC3339), uuid.NewString())
}

func dagFromAPI(d apiDag) dagtalk.Dag {
	return dagtalk.Dag{
		ID:          dagtalk.DagRef(d.DagID),
		DisplayName: displayName(d),
		Paused:      d.IsPaused,
		Description: d.Description,
	}
}

// displayName falls back to the DAG ID for servers that predate display names.
func displayName(d apiDag) string {
	if d.DagDisplayName != "" {
		return d.DagDisplayName
	}
	return d.DagID
}

func runFromAPI(r apiDagRun) *dagtalk.RunResult {
	out := &dagtalk.RunResult{
		DagID:    dagtalk.DagRef(r.DagID),
		RunID:    r.DagRunID,
		State:    dagtalk.ParseRunState(r.State),
		RawState: r.State,
		Conf:     confFromAPI(r.Conf),
	}
	if r.LogicalDate != nil {
		out.LogicalDate = *r.LogicalDate
	}
	return out
}

// confFromAPI flattens arbitrary conf values to display strings.
func confFromAPI(conf map[string]any) map[string]string {
	if len(conf) == 0 {
		return nil
	}
	out := make(map[string]string, len(conf))
	for k, v := range conf {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
