package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	apperrors "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/errors"
	"github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/models"
)

const (
	klineInterval = "1m"
	readWait      = 4 * time.Minute
	maxBackoff    = 30 * time.Second
)

// BinanceFeedConfig holds configuration for the websocket feed.
type BinanceFeedConfig struct {
	URL        string // combined stream endpoint, e.g. wss://stream.binance.com:9443/stream
	Symbols    []string
	MaxRetries int // reconnect attempts before giving up, defaults to 10
	BaseDelay  time.Duration
	Logger     zerolog.Logger
}

// BinanceFeed streams closed one-minute klines from the Binance combined
// stream endpoint. Only closed candles are emitted so each bar carries a
// final price and volume.
type BinanceFeed struct {
	cfg    BinanceFeedConfig
	logger zerolog.Logger
}

// NewBinanceFeed creates a new websocket feed.
func NewBinanceFeed(cfg BinanceFeedConfig) *BinanceFeed {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 10
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = time.Second
	}

	return &BinanceFeed{cfg: cfg, logger: cfg.Logger}
}

// Run streams bars into out, reconnecting with exponential backoff on
// connection loss. It returns once ctx is cancelled or the retry budget is
// exhausted.
func (f *BinanceFeed) Run(ctx context.Context, out chan<- models.Bar) error {
	url := f.streamURL()

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if attempt > 0 {
			if attempt > f.cfg.MaxRetries {
				return apperrors.Wrapf(apperrors.ErrFeedClosed, "giving up after %d reconnect attempts", f.cfg.MaxRetries)
			}

			// Exponential backoff
			delay := f.cfg.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			if delay > maxBackoff {
				delay = maxBackoff
			}
			f.logger.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Feed reconnecting")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		attempt++

		healthy, err := f.stream(ctx, url, out)
		if err != nil && ctx.Err() == nil {
			f.logger.Warn().Err(err).Msg("Feed connection lost")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A connection that delivered data resets the retry budget
		if healthy {
			attempt = 1
		}
	}
}

func (f *BinanceFeed) streamURL() string {
	streams := make([]string, 0, len(f.cfg.Symbols))
	for _, s := range f.cfg.Symbols {
		streams = append(streams, strings.ToLower(s)+"@kline_"+klineInterval)
	}

	sep := "?streams="
	if strings.Contains(f.cfg.URL, "?") {
		sep = "&streams="
	}
	return f.cfg.URL + sep + strings.Join(streams, "/")
}

// stream runs one websocket session. It reports whether any bar was
// delivered before the connection failed.
func (f *BinanceFeed) stream(ctx context.Context, url string, out chan<- models.Bar) (bool, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return false, fmt.Errorf("dialing %s: %w", url, err)
	}
	defer conn.Close()

	f.logger.Info().Str("url", f.cfg.URL).Int("symbols", len(f.cfg.Symbols)).Msg("Feed connected")

	// The server pings periodically; answering keeps the session alive
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})

	// Close the connection when ctx ends so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	delivered := false
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return delivered, fmt.Errorf("reading message: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		bar, ok, err := parseCombinedKline(msg)
		if err != nil {
			f.logger.Debug().Err(err).Msg("Skipping malformed feed message")
			continue
		}
		if !ok {
			continue
		}

		delivered = true
		select {
		case out <- bar:
		case <-ctx.Done():
			return delivered, ctx.Err()
		}
	}
}

// combinedStreamMessage is the envelope of the combined stream endpoint.
type combinedStreamMessage struct {
	Stream string     `json:"stream"`
	Data   klineEvent `json:"data"`
}

type klineEvent struct {
	EventType string    `json:"e"`
	Symbol    string    `json:"s"`
	Kline     klineData `json:"k"`
}

type klineData struct {
	StartTime   int64  `json:"t"`
	Symbol      string `json:"s"`
	Close       string `json:"c"`
	QuoteVolume string `json:"q"`
	Closed      bool   `json:"x"`
}

// parseCombinedKline extracts a bar from a combined stream message. The bool
// is false for messages that are valid but not closed klines.
func parseCombinedKline(msg []byte) (models.Bar, bool, error) {
	var envelope combinedStreamMessage
	if err := json.Unmarshal(msg, &envelope); err != nil {
		return models.Bar{}, false, fmt.Errorf("unmarshaling stream message: %w", err)
	}

	ev := envelope.Data
	if ev.EventType != "kline" || !ev.Kline.Closed {
		return models.Bar{}, false, nil
	}

	price, err := strconv.ParseFloat(ev.Kline.Close, 64)
	if err != nil {
		return models.Bar{}, false, fmt.Errorf("parsing close price %q: %w", ev.Kline.Close, err)
	}
	volume, err := strconv.ParseFloat(ev.Kline.QuoteVolume, 64)
	if err != nil {
		return models.Bar{}, false, fmt.Errorf("parsing quote volume %q: %w", ev.Kline.QuoteVolume, err)
	}

	return models.Bar{
		Symbol:    ev.Symbol,
		Price:     price,
		Volume:    volume,
		Timestamp: time.UnixMilli(ev.Kline.StartTime).UTC(),
	}, true, nil
}
