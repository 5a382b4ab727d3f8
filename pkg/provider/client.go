package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/telemetry"
)

// API paths served by the detection provider.
const (
	PathCPUMemory     = "/api/cpu-memory"
	PathProcesses     = "/api/processes"
	PathConnections   = "/api/network-connections"
	PathTraffic       = "/api/traffic-stats"
	PathFullScan      = "/api/full-scan"
	PathCryptojacking = "/api/cryptojacking-check"
	PathSaveScan      = "/api/save-scan"
	PathScanFile      = "/api/scan-file"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to the detection provider over HTTP. Deadlines come from
// the caller's context; the underlying http.Client has no timeout of its own.
type Client struct {
	base *url.URL
	http *http.Client
	log  logger.Logger
}

var _ Provider = (*Client)(nil)

// NewClient creates a client for the provider at baseURL.
func NewClient(baseURL string, log logger.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing scheme or host")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid provider URL: %s", baseURL),
			"Use a full URL like http://127.0.0.1:5000")
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Client{base: u, http: &http.Client{}, log: log}, nil
}

// SetHTTPClient replaces the transport client, mainly for tests.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}

// BaseURL returns the provider address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// flexString decodes either a JSON string or an array of strings joined by spaces.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	*f = flexString(strings.Join(parts, " "))
	return nil
}

type wireCPUMemory struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryTotal   uint64  `json:"memory_total"`
}

func (w wireCPUMemory) sample() telemetry.CPUMemorySample {
	return telemetry.CPUMemorySample(w)
}

type wireProcess struct {
	PID           int        `json:"pid"`
	Name          string     `json:"name"`
	Cmdline       flexString `json:"cmdline"`
	CPUPercent    float64    `json:"cpu_percent"`
	MemoryPercent float64    `json:"memory_percent"`
	CreateTime    string     `json:"create_time"`
	Suspicious    bool       `json:"suspicious"`
}

type wireConnection struct {
	PID        int    `json:"pid"`
	LocalAddr  string `json:"laddr"`
	RemoteAddr string `json:"raddr"`
	Status     string `json:"status"`
	Suspicious bool   `json:"suspicious"`
}

type wireTraffic struct {
	SentBytesPerSec float64 `json:"sent_bytes_per_sec"`
	RecvBytesPerSec float64 `json:"recv_bytes_per_sec"`
	TotalSent       uint64  `json:"total_sent"`
	TotalRecv       uint64  `json:"total_recv"`
	Anomaly         bool    `json:"anomaly"`
}

func (w wireTraffic) sample() telemetry.TrafficSample {
	return telemetry.TrafficSample(w)
}

func toProcesses(in []wireProcess) telemetry.ProcessList {
	out := make(telemetry.ProcessList, len(in))
	for i, p := range in {
		out[i] = telemetry.Process{
			PID:           p.PID,
			Name:          p.Name,
			Cmdline:       string(p.Cmdline),
			CPUPercent:    p.CPUPercent,
			MemoryPercent: p.MemoryPercent,
			CreateTime:    p.CreateTime,
			Suspicious:    p.Suspicious,
		}
	}
	return out
}

func toConnections(in []wireConnection) telemetry.ConnectionList {
	out := make(telemetry.ConnectionList, len(in))
	for i, c := range in {
		out[i] = telemetry.Connection{
			PID:        c.PID,
			LocalAddr:  c.LocalAddr,
			RemoteAddr: c.RemoteAddr,
			Status:     c.Status,
			Suspicious: c.Suspicious,
		}
	}
	return out
}

// CPUMemory fetches the current CPU and memory load.
func (c *Client) CPUMemory(ctx context.Context) (telemetry.CPUMemorySample, error) {
	var w wireCPUMemory
	if err := c.getJSON(ctx, PathCPUMemory, &w); err != nil {
		return telemetry.CPUMemorySample{}, err
	}
	return w.sample(), nil
}

// Processes fetches the process table.
func (c *Client) Processes(ctx context.Context) (telemetry.ProcessList, error) {
	var w []wireProcess
	if err := c.getJSON(ctx, PathProcesses, &w); err != nil {
		return nil, err
	}
	return toProcesses(w), nil
}

// Connections fetches the network connection table.
func (c *Client) Connections(ctx context.Context) (telemetry.ConnectionList, error) {
	var w []wireConnection
	if err := c.getJSON(ctx, PathConnections, &w); err != nil {
		return nil, err
	}
	return toConnections(w), nil
}

// Traffic fetches current throughput and the anomaly flag.
func (c *Client) Traffic(ctx context.Context) (telemetry.TrafficSample, error) {
	var w wireTraffic
	if err := c.getJSON(ctx, PathTraffic, &w); err != nil {
		return telemetry.TrafficSample{}, err
	}
	return w.sample(), nil
}

// FullScan runs the provider's combined system scan.
func (c *Client) FullScan(ctx context.Context) (*FullScanResult, error) {
	var w struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Error   string `json:"error"`
		Results struct {
			ScanTime  string           `json:"scan_time"`
			CPUMemory wireCPUMemory    `json:"cpu_memory"`
			Processes []wireProcess    `json:"processes"`
			Network   []wireConnection `json:"network"`
			Traffic   wireTraffic      `json:"traffic"`
			Summary   FullScanSummary  `json:"summary"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, PathFullScan, &w); err != nil {
		return nil, err
	}
	if err := statusError(PathFullScan, w.Status, w.Message, w.Error); err != nil {
		return nil, err
	}
	return &FullScanResult{
		ScanTime:    w.Results.ScanTime,
		CPUMemory:   w.Results.CPUMemory.sample(),
		Processes:   toProcesses(w.Results.Processes),
		Connections: toConnections(w.Results.Network),
		Traffic:     w.Results.Traffic.sample(),
		Summary:     w.Results.Summary,
	}, nil
}

// CryptojackingCheck runs the cryptojacking sweep.
func (c *Client) CryptojackingCheck(ctx context.Context) (*CryptojackingResult, error) {
	var out CryptojackingResult
	if err := c.getJSON(ctx, PathCryptojacking, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveScan asks the provider to persist a snapshot on its side.
func (c *Client) SaveScan(ctx context.Context) (*SaveResult, error) {
	var w struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		SaveResult
	}
	if err := c.getJSON(ctx, PathSaveScan, &w); err != nil {
		return nil, err
	}
	if err := statusError(PathSaveScan, w.Status, w.Message, w.Error); err != nil {
		return nil, err
	}
	return &w.SaveResult, nil
}

// ScanFile uploads a file as multipart field "file".
func (c *Client) ScanFile(ctx context.Context, filename string, content io.Reader) (*FileScanResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrInvalidInput, "Cannot encode upload", "")
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrInvalidInput,
			fmt.Sprintf("Cannot read %s", filename), "Check that the file is readable")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrInvalidInput, "Cannot encode upload", "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(PathScanFile), &body)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot build provider request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out FileScanResult
	if err := c.do(req, PathScanFile, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return errors.Wrap(err, "Cannot build provider request")
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vigil")

	c.log.Debug("%s %s", req.Method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrProviderUnavailable,
			fmt.Sprintf("Cannot reach provider at %s", c.base.Host),
			"Check that the detection provider is running")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WrapWithCode(err, errors.ErrProviderUnavailable,
			fmt.Sprintf("Invalid response from %s", path), "")
	}
	return nil
}

// responseError turns a non-2xx response into an unavailable-with-reason
// error, using the {"error": msg} body when the provider sent one.
func responseError(path string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error string `json:"error"`
	}
	reason := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		reason = body.Error
	}
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return errors.New(errors.ErrProviderUnavailable,
		fmt.Sprintf("HTTP %d from %s: %s", resp.StatusCode, path, reason), "")
}

// statusError reports a scan or save the provider marked as failed in an
// otherwise successful response.
func statusError(path, status, message, errMsg string) error {
	if errMsg != "" {
		return errors.New(errors.ErrProviderUnavailable,
			fmt.Sprintf("%s failed: %s", path, errMsg), "")
	}
	switch strings.ToLower(status) {
	case "error", "failed", "failure":
	default:
		// "completed", "saved" and an absent status are all success.
		return nil
	}
	if message == "" {
		message = status
	}
	return errors.New(errors.ErrProviderUnavailable,
		fmt.Sprintf("%s reported %s: %s", path, status, message), "")
}
