package wos

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wosbot/pkg/logx"
)

const (
	playerAPIURL = "https://wos-giftcode-api.centurygame.com/api/player"

	// Shared signing secret used by the public gift-code site itself.
	apiSecret = "tB87#kPtkxqOS2"

	requestTimeout = 15 * time.Second
)

// ErrLookupFailed covers every player-info failure mode: network errors,
// timeouts, non-200 statuses, and unknown game ids.
var ErrLookupFailed = errors.New("player lookup failed")

// Player is the game-side identity attached to a registered member.
type Player struct {
	FID             string `json:"fid"`
	Nickname        string `json:"nickname"`
	StateID         int    `json:"state_id"`
	FurnaceLevel    int    `json:"furnace_level"`
	FurnaceImageURL string `json:"furnace_image_url"`
	AvatarURL       string `json:"avatar_url"`
}

// RedeemStatus classifies a redemption attempt outcome.
type RedeemStatus string

const (
	RedeemOK             RedeemStatus = "ok"
	RedeemNotImplemented RedeemStatus = "not_implemented"
	RedeemError          RedeemStatus = "error"
)

type RedeemResult struct {
	Status  RedeemStatus
	Message string
}

// Client talks to the CenturyGame player API. Requests are paced through a
// shared limiter so an auto-redeem sweep over many players can't hammer the
// endpoint.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logx.Logger

	playerURL string
}

func NewClient(log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		// ~4 requests/sec with a small burst; gentle but fast enough for sweeps.
		limiter:   rate.NewLimiter(rate.Limit(4), 4),
		log:       log,
		playerURL: playerAPIURL,
	}
}

// sign derives the request signature from the game id and a fresh millisecond
// timestamp. Signatures are single-use; never reuse one across calls.
func sign(fid string, now time.Time) (sig, ts string) {
	ts = strconv.FormatInt(now.UnixMilli(), 10)
	form := "fid=" + fid + "&time=" + ts
	sum := md5.Sum([]byte(form + apiSecret))
	return hex.EncodeToString(sum[:]), ts
}

type playerEnvelope struct {
	Code int        `json:"code"`
	Msg  string     `json:"msg"`
	Data playerData `json:"data"`
}

type playerData struct {
	FID            json.Number `json:"fid"`
	Nickname       string      `json:"nickname"`
	Kid            int         `json:"kid"`
	StoveLv        int         `json:"stove_lv"`
	StoveLvContent string      `json:"stove_lv_content"`
	AvatarImage    string      `json:"avatar_image"`
}

// PlayerInfo fetches the profile behind a game id. Every failure mode wraps
// ErrLookupFailed so callers can branch without inspecting transport details.
func (c *Client) PlayerInfo(ctx context.Context, fid string) (Player, error) {
	fid = strings.TrimSpace(fid)
	if fid == "" {
		return Player{}, fmt.Errorf("%w: empty game id", ErrLookupFailed)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Player{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	sig, ts := sign(fid, time.Now())
	form := url.Values{}
	form.Set("sign", sig)
	form.Set("fid", fid)
	form.Set("time", ts)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.playerURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Player{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Player{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("player api non-200", logx.Int("status", resp.StatusCode), logx.String("fid", fid))
		return Player{}, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var env playerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Player{}, fmt.Errorf("%w: decode: %v", ErrLookupFailed, err)
	}
	if env.Data.Nickname == "" {
		return Player{}, fmt.Errorf("%w: no player data for fid %s", ErrLookupFailed, fid)
	}

	return Player{
		FID:             env.Data.FID.String(),
		Nickname:        env.Data.Nickname,
		StateID:         env.Data.Kid,
		FurnaceLevel:    env.Data.StoveLv,
		FurnaceImageURL: env.Data.StoveLvContent,
		AvatarURL:       env.Data.AvatarImage,
	}, nil
}

// Redeem attempts a gift-code redemption for a player.
//
// The real endpoint sits behind a captcha, so this is a stub that always
// reports not_implemented. The watcher still surfaces the outcome per user so
// operators see an explicit status instead of silence.
func (c *Client) Redeem(ctx context.Context, fid, code string) RedeemResult {
	_ = ctx
	c.log.Debug("redeem requested", logx.String("fid", fid), logx.String("code", code))
	return RedeemResult{
		Status:  RedeemNotImplemented,
		Message: "redemption requires captcha; redeem manually at wos-giftcode.centurygame.com",
	}
}
