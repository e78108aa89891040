package services

import (
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/motsvote/internal/errors"
	"github.com/abrezinsky/motsvote/internal/logger"
)

// ShareService produces the link managers use to reach the voting page
type ShareService struct {
	log     logger.Logger
	baseURL string
}

// NewShareService creates a new ShareService for the given public base URL
func NewShareService(log logger.Logger, baseURL string) *ShareService {
	return &ShareService{log: log, baseURL: strings.TrimRight(baseURL, "/")}
}

// VotingURL returns the public URL of the voting page
func (s *ShareService) VotingURL() string {
	return s.baseURL + "/"
}

// QRCode renders the voting URL as a PNG
func (s *ShareService) QRCode() ([]byte, error) {
	if s.baseURL == "" {
		return nil, errors.Validation("base URL is not configured")
	}
	png, err := qrcode.Encode(s.VotingURL(), qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return png, nil
}
