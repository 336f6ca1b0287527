// Package catalog is the read-only gateway to the external catalog service.
// Showtime, seat and price facts are resolved over HTTP and cached briefly in
// Redis; a cache failure degrades to a direct call, never to a request error.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"showtime-booking/internal/apperr"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Showtime struct {
	ID        int64     `json:"id"`
	MovieID   int64     `json:"movie_id"`
	HallID    int64     `json:"hall_id"`
	TimeStart time.Time `json:"time_start"`
	TimeEnd   time.Time `json:"time_end"`
}

type Seat struct {
	ID     int64  `json:"id"`
	HallID int64  `json:"hall_id"`
	SeatNo string `json:"seat_no"`
}

type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Gateway resolves catalog facts needed at booking creation time.
type Gateway interface {
	GetShowtime(ctx context.Context, showtimeID int64) (*Showtime, error)
	GetSeat(ctx context.Context, seatID int64) (*Seat, error)
	GetPrice(ctx context.Context, seatID, showtimeID int64) (*Price, error)
}

type Client struct {
	baseURL  string
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	log      *zap.Logger
}

// NewClient builds a gateway client. cache may be nil to disable caching.
func NewClient(baseURL string, cache *redis.Client, cacheTTL time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 5 * time.Second},
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.With(zap.String("client", "catalog")),
	}
}

func (c *Client) GetShowtime(ctx context.Context, showtimeID int64) (*Showtime, error) {
	var showtime Showtime
	key := fmt.Sprintf("catalog:showtime:%d", showtimeID)
	path := fmt.Sprintf("/showtimes/%d", showtimeID)

	if err := c.fetch(ctx, key, path, &showtime); err != nil {
		return nil, err
	}
	return &showtime, nil
}

func (c *Client) GetSeat(ctx context.Context, seatID int64) (*Seat, error) {
	var seat Seat
	key := fmt.Sprintf("catalog:seat:%d", seatID)
	path := fmt.Sprintf("/seats/%d", seatID)

	if err := c.fetch(ctx, key, path, &seat); err != nil {
		return nil, err
	}
	return &seat, nil
}

func (c *Client) GetPrice(ctx context.Context, seatID, showtimeID int64) (*Price, error) {
	var price Price
	key := fmt.Sprintf("catalog:price:%d:%d", seatID, showtimeID)
	path := fmt.Sprintf("/prices?seat_id=%d&showtime_id=%d", seatID, showtimeID)

	if err := c.fetch(ctx, key, path, &price); err != nil {
		return nil, err
	}
	return &price, nil
}

// fetch resolves path into out, consulting the cache first.
func (c *Client) fetch(ctx context.Context, cacheKey, path string, out any) error {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			if err := json.Unmarshal(cached, out); err == nil {
				return nil
			}
		} else if err != redis.Nil {
			c.log.Debug("Catalog cache read failed", zap.Error(err), zap.String("key", cacheKey))
		}
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Internal(err, "decode catalog response for %s", path)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body, c.cacheTTL).Err(); err != nil {
			c.log.Debug("Catalog cache write failed", zap.Error(err), zap.String("key", cacheKey))
		}
	}

	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperr.Internal(err, "build catalog request for %s", path)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Catalog call failed", zap.Error(err), zap.String("path", path))
		return nil, apperr.Internal(err, "call catalog %s", path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.NotFound("catalog %s", path)
	case resp.StatusCode != http.StatusOK:
		c.log.Error("Catalog returned unexpected status",
			zap.Int("status", resp.StatusCode),
			zap.String("path", path),
		)
		return nil, apperr.Internal(fmt.Errorf("status %d", resp.StatusCode), "call catalog %s", path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Internal(err, "read catalog response for %s", path)
	}

	return body, nil
}
