package provider

import (
	"context"
	"encoding/base64"
	"strings"

	"onboarding/internal/verification/models"
	"onboarding/internal/verification/providers"
)

const extractorID = "document-extractor"

// Extractor implements ports.DocumentExtractor.
type Extractor struct {
	c *client
}

func NewExtractor(cfg Config, opts ...Option) *Extractor {
	return &Extractor{c: newClient(extractorID, cfg, opts...)}
}

type imagePayload struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type extractRequest struct {
	Images []imagePayload `json:"images"`
}

type extractResponse struct {
	Document *models.ExtractedDocument `json:"document"`
}

// ExtractDocument posts the images and returns the fields the provider read.
// The provider's own confidence is discarded; scoring is done locally.
func (e *Extractor) ExtractDocument(ctx context.Context, images []models.Blob) (*models.ExtractedDocument, error) {
	req := extractRequest{Images: make([]imagePayload, 0, len(images))}
	for _, img := range images {
		req.Images = append(req.Images, imagePayload{
			ContentType: img.ContentType,
			Data:        base64.StdEncoding.EncodeToString(img.Data),
		})
	}

	var resp extractResponse
	if err := e.c.post(ctx, "/v1/documents/extract", req, &resp); err != nil {
		return nil, err
	}
	if resp.Document == nil {
		return nil, contractError(extractorID, "response has no document")
	}

	doc := normalize(*resp.Document)
	if doc == (models.ExtractedDocument{}) {
		return nil, providers.NewProviderError(providers.ErrorBadData, extractorID, "no document fields recognised", nil)
	}
	return &doc, nil
}

func normalize(doc models.ExtractedDocument) models.ExtractedDocument {
	trim := strings.TrimSpace
	doc.FullName = trim(doc.FullName)
	doc.DateOfBirth = trim(doc.DateOfBirth)
	doc.DocumentNumber = trim(doc.DocumentNumber)
	doc.IssueDate = trim(doc.IssueDate)
	doc.ExpiryDate = trim(doc.ExpiryDate)
	doc.Nationality = trim(doc.Nationality)
	doc.Gender = trim(doc.Gender)
	doc.IDNumber = trim(doc.IDNumber)
	doc.PlaceOfBirth = trim(doc.PlaceOfBirth)
	doc.FatherName = trim(doc.FatherName)
	doc.MotherName = trim(doc.MotherName)
	doc.RegistrationNumber = trim(doc.RegistrationNumber)
	doc.Address = models.Address{
		Street:     trim(doc.Address.Street),
		City:       trim(doc.Address.City),
		State:      trim(doc.Address.State),
		PostalCode: trim(doc.Address.PostalCode),
		Country:    trim(doc.Address.Country),
	}
	if t, err := models.ParseDocumentType(string(doc.DocumentType)); err == nil {
		doc.DocumentType = t
	} else {
		doc.DocumentType = models.DocumentType(trim(string(doc.DocumentType)))
	}
	doc.Confidence = 0
	return doc
}
