package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"huntlab.org/internal/reports"
)

// listPage tolerates both a bare array and a paginated envelope.
type listPage struct {
	Results []reports.Record `json:"results"`
}

func (p *listPage) UnmarshalJSON(data []byte) error {
	var bare []reports.Record
	if err := json.Unmarshal(data, &bare); err == nil {
		p.Results = bare
		return nil
	}
	type envelope listPage
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	p.Results = env.Results
	return nil
}

// ListReports fetches the shared queue, optionally filtered server-side
// by status. The all sentinel means no filter.
func (c *Client) ListReports(ctx context.Context, status reports.Status) ([]reports.Record, error) {
	path := "/api/v1/reports/"
	if status != "" && status != reports.StatusAll {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var page listPage
	if err := c.get(ctx, "list_reports", path, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// ListMyReports fetches only the caller's own submissions.
func (c *Client) ListMyReports(ctx context.Context) ([]reports.Record, error) {
	var page listPage
	if err := c.get(ctx, "list_my_reports", "/api/v1/reports/mine/", &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// GetReport fetches one record.
func (c *Client) GetReport(ctx context.Context, id int64) (reports.Record, error) {
	var rec reports.Record
	if err := c.get(ctx, "get_report", reportPath(id), &rec); err != nil {
		return reports.Record{}, err
	}
	return rec, nil
}

// UpdateReport applies a partial update and returns the committed record.
func (c *Client) UpdateReport(ctx context.Context, id int64, patch reports.Patch) (reports.Record, error) {
	var rec reports.Record
	if err := c.patchJSON(ctx, "update_report", reportPath(id), patch, &rec); err != nil {
		return reports.Record{}, err
	}
	return rec, nil
}

// CreateReport submits a draft as multipart form data. The proof of
// concept attachment is optional.
func (c *Client) CreateReport(ctx context.Context, draft reports.Draft) (reports.Record, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"title", draft.Title},
		{"target", draft.Target},
		{"cwe", draft.CWE},
		{"cvss_score", draft.CVSSScore},
		{"description", draft.Description},
		{"impact", draft.Impact},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return reports.Record{}, fmt.Errorf("api: create_report: %w", err)
		}
	}
	if len(draft.POC) > 0 {
		name := draft.POCName
		if name == "" {
			name = "poc.bin"
		}
		fw, err := w.CreateFormFile("poc_file", name)
		if err != nil {
			return reports.Record{}, fmt.Errorf("api: create_report: %w", err)
		}
		if _, err := fw.Write(draft.POC); err != nil {
			return reports.Record{}, fmt.Errorf("api: create_report: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return reports.Record{}, fmt.Errorf("api: create_report: %w", err)
	}

	var rec reports.Record
	if err := c.do(ctx, "create_report", http.MethodPost, "/api/v1/reports/create/", &buf, w.FormDataContentType(), true, &rec); err != nil {
		return reports.Record{}, err
	}
	return rec, nil
}

// DeleteReport removes a record; the backend answers 204 or 200.
func (c *Client) DeleteReport(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_report", http.MethodDelete, reportPath(id)+"delete/", nil, "", true, nil)
}

func reportPath(id int64) string {
	return "/api/v1/reports/" + strconv.FormatInt(id, 10) + "/"
}
