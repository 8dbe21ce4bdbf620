package mapper

import (
	"github.com/vibast-solutions/ms-go-entitlements/app/dto"
	"github.com/vibast-solutions/ms-go-entitlements/app/generation"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
)

func ImageToDTO(img *generation.Image) dto.GeneratedImageResponse {
	if img == nil {
		return dto.GeneratedImageResponse{}
	}
	return dto.GeneratedImageResponse{URL: img.URL, Provider: img.Provider}
}

// BulkResultToDTO hides provider error details behind a generic per-item message.
func BulkResultToDTO(result *service.BulkResult) dto.BulkGenerateResponse {
	items := make([]dto.BulkItemResponse, 0, len(result.Items))
	for _, item := range result.Items {
		entry := dto.BulkItemResponse{Prompt: item.Prompt}
		if item.Err != nil {
			entry.Error = service.ErrGenerationFailed.Error()
		} else if item.Image != nil {
			entry.URL = item.Image.URL
		}
		items = append(items, entry)
	}
	return dto.BulkGenerateResponse{
		Items:     items,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}
}
