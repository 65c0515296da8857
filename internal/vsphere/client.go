package vsphere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/opslynx/patchlynx/pkg/utils"
)

// Client implements API over the management server's REST surface. Calls are
// rate limited client side; failures surface to the caller untouched. The
// pipeline's skip list, not retries, is the failure-isolation boundary.
type Client struct {
	session *Session
	limiter *rate.Limiter
	logger  *logrus.Logger
	metrics *utils.Metrics
}

func NewClient(session *Session, rateLimit int, logger *logrus.Logger, metrics *utils.Metrics) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Limit(rateLimit)
	}
	return &Client{
		session: session,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		metrics: metrics,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if !c.session.Active() {
		return ErrNotConnected
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.session.Server()+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.session.authorize(req)

	resp, err := c.session.http.Do(req)
	if err != nil {
		c.metrics.APICall(path, "error")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.APICall(path, "not_found")
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized:
		c.metrics.APICall(path, "unauthorized")
		return fmt.Errorf("%s %s: %w", method, path, ErrNotConnected)
	case resp.StatusCode >= 400:
		c.metrics.APICall(path, "error")
		return fmt.Errorf("%s %s: server returned %s", method, path, resp.Status)
	}

	c.metrics.APICall(path, "ok")
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) ListHosts(ctx context.Context) ([]HostSummary, error) {
	var out struct {
		Value []HostSummary `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/esx/hosts", nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *Client) GroupHosts(ctx context.Context, group string) ([]HostSummary, error) {
	var out struct {
		Value []HostSummary `json:"value"`
	}
	path := "/api/esx/host-groups/" + url.PathEscape(group) + "/hosts"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *Client) FindHost(ctx context.Context, name string) (*HostSummary, error) {
	var out struct {
		Value HostSummary `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/esx/hosts/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

func (c *Client) ListBaselines(ctx context.Context) ([]Baseline, error) {
	var out struct {
		Value []Baseline `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/patch/baselines", nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *Client) AttachBaselines(ctx context.Context, host string, baselineIDs []string) error {
	body := struct {
		Baselines []string `json:"baselines"`
	}{Baselines: baselineIDs}
	path := "/api/esx/hosts/" + url.PathEscape(host) + "/baselines"
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) StartScan(ctx context.Context, hosts []string) (*ScanHandle, error) {
	body := struct {
		Hosts []string `json:"hosts"`
	}{Hosts: hosts}
	var out struct {
		Value string `json:"value"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/patch/scans", body, &out); err != nil {
		return nil, err
	}
	return &ScanHandle{TaskID: out.Value, Hosts: hosts}, nil
}

func (c *Client) ScanStatus(ctx context.Context, handle *ScanHandle) (*ScanStatus, error) {
	var out struct {
		Value ScanStatus `json:"value"`
	}
	path := "/api/patch/scans/" + url.PathEscape(handle.TaskID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

func (c *Client) HostCompliance(ctx context.Context, host string) ([]ComplianceDetail, error) {
	var out struct {
		Value []ComplianceDetail `json:"value"`
	}
	path := "/api/esx/hosts/" + url.PathEscape(host) + "/compliance"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *Client) HostPackages(ctx context.Context, host string) ([]Package, error) {
	var out struct {
		Value []Package `json:"value"`
	}
	path := "/api/esx/hosts/" + url.PathEscape(host) + "/packages"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *Client) PackageInstallTime(ctx context.Context, host, pkg string) (time.Time, error) {
	var out struct {
		Value struct {
			InstallTime time.Time `json:"install_time"`
		} `json:"value"`
	}
	path := "/api/esx/hosts/" + url.PathEscape(host) + "/config/packages/" + url.PathEscape(pkg)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return time.Time{}, err
	}
	return out.Value.InstallTime, nil
}

var _ API = (*Client)(nil)
