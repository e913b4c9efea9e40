package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/logging"
	"github.com/dmitrijs2005/shlink/internal/server/storage"
	qrcode "github.com/skip2/go-qrcode"
)

const contentTypePNG = "image/png"

// encodeQR is swapped in tests.
var encodeQR = func(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}

// QRService renders links as PNG QR codes, caching them in the object store
// when one is configured.
type QRService struct {
	store  storage.ObjectStore
	size   int
	logger logging.Logger
}

func NewQRService(store storage.ObjectStore, size int, logger logging.Logger) *QRService {
	return &QRService{store: store, size: size, logger: logger.With("module", "qrcode")}
}

// PNG returns the QR image for the link's shlink URL.
func (s *QRService) PNG(ctx context.Context, linkID, shlinkURL string) ([]byte, error) {
	if s.store != nil {
		png, err := s.store.Get(ctx, storage.QRCodeKey(linkID))
		if err == nil {
			return png, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "qr cache read failed", "link_id", linkID, "error", err)
		}
	}

	png, err := encodeQR(shlinkURL, s.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	if s.store != nil {
		if err := s.store.Put(ctx, storage.QRCodeKey(linkID), png, contentTypePNG); err != nil {
			s.logger.Warn(ctx, "qr cache write failed", "link_id", linkID, "error", err)
		}
	}
	return png, nil
}

// DataURI returns the QR image as an inline data: URI.
func (s *QRService) DataURI(ctx context.Context, linkID, shlinkURL string) (string, error) {
	png, err := s.PNG(ctx, linkID, shlinkURL)
	if err != nil {
		return "", err
	}
	return "data:" + contentTypePNG + ";base64," + base64.StdEncoding.EncodeToString(png), nil
}
