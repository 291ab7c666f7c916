package handler

import (
	"net/http"

	"github.com/fieldlead/renderbatch/content"
	"github.com/fieldlead/renderbatch/models"
)

// errorCodeFor maps a render taxonomy label to an API error code.
func errorCodeFor(errType string) string {
	switch errType {
	case models.ErrorTypeValidation:
		return models.ErrCodeInvalidInput
	case models.ErrorTypeTimeout:
		return models.ErrCodeTimeout
	case models.ErrorTypeHTTP, models.ErrorTypeDNS, models.ErrorTypeConnRefused,
		models.ErrorTypeConnTimeout, models.ErrorTypeBrowser:
		return models.ErrCodeNavigation
	default:
		return models.ErrCodeInternal
	}
}

// statusFor maps a render taxonomy label to an HTTP status code.
func statusFor(errType string) int {
	switch errType {
	case models.ErrorTypeValidation:
		return http.StatusBadRequest // 400
	case models.ErrorTypeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrorTypeHTTP, models.ErrorTypeDNS, models.ErrorTypeConnRefused,
		models.ErrorTypeConnTimeout, models.ErrorTypeBrowser:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// toResponse post-processes a core render result into an API response:
// format conversion, optional metadata extraction, and error shaping.
func toResponse(proc *content.Processor, res *models.RenderResult, format, mode string, includeMetadata bool) *models.RenderResponse {
	if !res.Success {
		return &models.RenderResponse{
			Success:           false,
			URL:               res.URL,
			ErrorType:         res.ErrorType,
			RenderTimeSeconds: res.RenderTimeSeconds,
			Error: &models.ErrorDetail{
				Code:    errorCodeFor(res.ErrorType),
				Message: res.ErrorMessage,
			},
		}
	}

	body, err := proc.Process(res.HTMLContent, res.FinalURL, format, mode)
	if err != nil {
		return &models.RenderResponse{
			Success:           false,
			URL:               res.URL,
			FinalURL:          res.FinalURL,
			ErrorType:         models.ErrorTypeUnexpected,
			RenderTimeSeconds: res.RenderTimeSeconds,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeConversion,
				Message: err.Error(),
			},
		}
	}

	resp := &models.RenderResponse{
		Success:           true,
		URL:               res.URL,
		FinalURL:          res.FinalURL,
		Title:             res.Title,
		Content:           body,
		RenderTimeSeconds: res.RenderTimeSeconds,
	}

	if includeMetadata {
		resp.Metadata = content.ExtractMetadata(res.HTMLContent, res.FinalURL)
		if resp.Metadata.Title == "" {
			resp.Metadata.Title = res.Title
		}
	}

	return resp
}
