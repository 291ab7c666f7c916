package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// renderRequest mirrors the Renderbatch API request model.
type renderRequest struct {
	URL             string `json:"url"`
	OutputFormat    string `json:"output_format,omitempty"`
	ExtractMode     string `json:"extract_mode,omitempty"`
	IncludeMetadata bool   `json:"include_metadata,omitempty"`
}

// renderResponse mirrors the Renderbatch API response model.
type renderResponse struct {
	Success  bool   `json:"success"`
	Title    string `json:"title"`
	FinalURL string `json:"final_url"`
	Content  string `json:"content"`
	Metadata *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SiteName    string `json:"site_name"`
		Language    string `json:"language"`
		SourceURL   string `json:"source_url"`
	} `json:"metadata"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// batchResponse mirrors the Renderbatch batch API response.
type batchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// batchStatusResponse mirrors the Renderbatch batch status API response.
type batchStatusResponse struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Results   []renderResponse `json:"results"`
}

func main() {
	apiURL := os.Getenv("RENDERBATCH_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("RENDERBATCH_API_KEY")

	s := server.NewMCPServer(
		"renderbatch",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	renderPageTool := mcp.NewTool("render_page",
		mcp.WithDescription("Render a web page in a headless browser and return its content. Executes JavaScript, so dynamic pages come back fully populated."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to render"),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format: 'markdown' (default for this tool), 'text', or 'html'"),
			mcp.Enum("markdown", "text", "html"),
		),
		mcp.WithString("extract_mode",
			mcp.Description("Content extraction mode: 'readability' (extracts the main article) or 'raw' (full rendered DOM, default)"),
			mcp.Enum("readability", "raw"),
		),
	)
	s.AddTool(renderPageTool, handleRenderPage(apiURL, apiKey))

	renderBatchTool := mcp.NewTool("render_batch",
		mcp.WithDescription("Render multiple URLs concurrently and return content for each. Results come back in the same order as the input URLs."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to render"),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format: 'markdown' (default for this tool), 'text', or 'html'"),
			mcp.Enum("markdown", "text", "html"),
		),
		mcp.WithString("extract_mode",
			mcp.Description("Content extraction mode: 'readability' or 'raw' (default)"),
			mcp.Enum("readability", "raw"),
		),
	)
	s.AddTool(renderBatchTool, handleRenderBatch(apiURL, apiKey))

	renderStatsTool := mcp.NewTool("render_stats",
		mcp.WithDescription("Fetch aggregate render statistics: request counts, success rate, average render time, and error breakdown."),
	)
	s.AddTool(renderStatsTool, handleRenderStats(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the Renderbatch API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// apiGet sends a GET request to the Renderbatch API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := apiGet(ctx, client, apiURL, apiKey, endpoint)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}

func handleRenderPage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := renderRequest{
			URL:             url,
			OutputFormat:    request.GetString("output_format", "markdown"),
			ExtractMode:     request.GetString("extract_mode", ""),
			IncludeMetadata: true,
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/render", reqBody)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp renderResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !resp.Success {
			errMsg := "render failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var result string
		if resp.Metadata != nil {
			result = fmt.Sprintf("Title: %s\nSource: %s\n\n", resp.Metadata.Title, resp.Metadata.SourceURL)
		}
		result += resp.Content

		return mcp.NewToolResultText(result), nil
	}
}

func handleRenderBatch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		payload := map[string]interface{}{
			"urls": urls,
			"options": map[string]interface{}{
				"output_format": request.GetString("output_format", "markdown"),
				"extract_mode":  request.GetString("extract_mode", ""),
			},
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/render/batch", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var batchResp batchResponse
		if err := json.Unmarshal(respBody, &batchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}

		if batchResp.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		resultBody, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/render/batch/"+batchResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var statusResp batchStatusResponse
		if err := json.Unmarshal(resultBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch status: %v", err)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Batch %s: %s (%d/%d)\n\n", statusResp.ID, statusResp.Status, statusResp.Completed, statusResp.Total)
		for i, r := range statusResp.Results {
			fmt.Fprintf(&b, "--- [%d/%d] %s ---\n", i+1, statusResp.Total, urls[i])
			if r.Success {
				b.WriteString(r.Content)
			} else if r.Error != nil {
				fmt.Fprintf(&b, "error: [%s] %s", r.Error.Code, r.Error.Message)
			} else {
				b.WriteString("error: render failed")
			}
			b.WriteString("\n\n")
		}

		return mcp.NewToolResultText(b.String()), nil
	}
}

func handleRenderStats(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/stats")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
