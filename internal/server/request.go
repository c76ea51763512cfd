package server

import (
	"bytes"
	"encoding/json"

	"github.com/lehigh-university-libraries/alphaocr/internal/apperrors"
	"github.com/lehigh-university-libraries/alphaocr/pkg/locate"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
)

// ocrRequest is the wire form of POST /ocr-and-translate. Pointers tell an
// absent field from a zero value.
type ocrRequest struct {
	ImageData   *string  `json:"image_data"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	PixelRatio  *float64 `json:"pixelRatio"`
	Orientation *string  `json:"orientation"`
}

type parsedRequest struct {
	ImageData   string
	Cursor      *locate.Cursor
	Orientation recognition.Orientation
}

func parseRequest(body []byte) (*parsedRequest, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, apperrors.Validation("No JSON payload")
	}

	var req ocrRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "Invalid JSON format: "+err.Error(), err)
	}

	if req.ImageData == nil || *req.ImageData == "" {
		return nil, apperrors.Validation("Missing 'image_data'")
	}

	parsed := &parsedRequest{
		ImageData:   *req.ImageData,
		Orientation: recognition.Horizontal,
	}

	if req.Orientation != nil {
		o, err := recognition.ParseOrientation(*req.Orientation)
		if err != nil {
			return nil, apperrors.New(apperrors.KindValidation, "Invalid 'orientation': expected 'horizontal' or 'vertical'", err)
		}
		parsed.Orientation = o
	}

	if (req.X == nil) != (req.Y == nil) {
		return nil, apperrors.Validation("Missing 'x' or 'y'")
	}

	cursor := locate.Cursor{PixelRatio: 1.0}
	if req.PixelRatio != nil {
		cursor.PixelRatio = *req.PixelRatio
	}
	if err := cursor.Validate(); err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "Invalid 'pixelRatio': must be greater than zero", err)
	}

	if req.X != nil {
		cursor.X, cursor.Y = *req.X, *req.Y
		parsed.Cursor = &cursor
	}

	return parsed, nil
}
