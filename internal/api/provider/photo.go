package provider

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FetchPhoto returns the first photo of a place as JPEG, bounded to maxWidth x maxHeight.
func (c *ClientImpl) FetchPhoto(ctx context.Context, placeID string, maxWidth, maxHeight int) []byte {
	ctx, span := otel.Tracer("PlaceProvider").Start(ctx, "FetchPhoto", trace.WithAttributes(
		attribute.String("place.id", placeID),
		attribute.Int("max_width", maxWidth),
		attribute.Int("max_height", maxHeight),
	))
	defer span.End()

	cacheKey := fmt.Sprintf("photo:%s:%dx%d", placeID, maxWidth, maxHeight)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]byte)
	}

	start := time.Now()
	details, err := c.placeDetails(ctx, placeID, fieldMaskPhotos)
	c.record(ctx, "photo_metadata", start, outcomeOf(err))
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to fetch photo metadata",
			slog.String("method", "FetchPhoto"), slog.String("place_id", placeID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "photo metadata failed")
		return nil
	}
	if details.PhotoName == "" {
		span.SetStatus(codes.Ok, "no photo")
		return nil
	}

	photo := c.photoByName(ctx, details.PhotoName, maxWidth, maxHeight)
	if photo != nil {
		c.cache.Set(cacheKey, photo, cache.DefaultExpiration)
	}
	span.SetStatus(codes.Ok, "")
	return photo
}

// photoByName downloads a photo resource and re-encodes it within the requested bounds.
func (c *ClientImpl) photoByName(ctx context.Context, photoName string, maxWidth, maxHeight int) []byte {
	l := c.logger.With(slog.String("method", "photoByName"), slog.String("photo", photoName))
	start := time.Now()

	q := url.Values{}
	q.Set("maxWidthPx", strconv.Itoa(maxWidth))
	q.Set("maxHeightPx", strconv.Itoa(maxHeight))
	body, err := c.do(ctx, http.MethodGet, c.placesURL+"/"+photoName+"/media?"+q.Encode(), "", nil)
	if err != nil {
		c.record(ctx, "photo_media", start, outcomeOf(err))
		l.WarnContext(ctx, "Failed to download photo", slog.Any("error", err))
		return nil
	}

	img, err := imaging.Decode(bytes.NewReader(body), imaging.AutoOrientation(true))
	if err != nil {
		c.record(ctx, "photo_media", start, outcomeDecodeError)
		l.WarnContext(ctx, "Failed to decode photo", slog.Any("error", err))
		return nil
	}
	b := img.Bounds()
	if b.Dx() > maxWidth || b.Dy() > maxHeight {
		img = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(jpeg.DefaultQuality)); err != nil {
		c.record(ctx, "photo_media", start, outcomeDecodeError)
		l.WarnContext(ctx, "Failed to encode photo", slog.Any("error", err))
		return nil
	}
	c.record(ctx, "photo_media", start, outcomeOK)
	return out.Bytes()
}
