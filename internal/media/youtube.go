// Package media resolves song media refs (YouTube video ids) into preview
// metadata and drives preview playback timing.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultVideosURL = "https://www.googleapis.com/youtube/v3/videos"

	durationKeyPrefix = "worldcup:yt:duration:"
	durationCacheTTL  = 24 * time.Hour
	maxIDsPerRequest  = 50
)

// ThumbnailURL is the still image shown on a song card.
func ThumbnailURL(ref string) string {
	if ref == "" {
		return ""
	}
	return "https://img.youtube.com/vi/" + url.PathEscape(ref) + "/0.jpg"
}

// WatchURL opens the song on YouTube.
func WatchURL(ref string) string {
	if ref == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(ref)
}

// YouTubeClient looks up video durations through the YouTube Data API,
// caching them in Redis when a client is configured.
type YouTubeClient struct {
	apiKey    string
	videosURL string
	http      *http.Client
	rdb       *redis.Client
}

func NewYouTubeClient(apiKey, videosURL string, rdb *redis.Client) *YouTubeClient {
	if videosURL == "" {
		videosURL = DefaultVideosURL
	}
	return &YouTubeClient{
		apiKey:    apiKey,
		videosURL: videosURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		rdb: rdb,
	}
}

// Enabled reports whether an API key is configured. Without one, no duration
// is known and previews never end on their own.
func (c *YouTubeClient) Enabled() bool {
	return c.apiKey != ""
}

// Duration returns the video's length, or 0 when it is unknown.
func (c *YouTubeClient) Duration(ctx context.Context, ref string) (time.Duration, error) {
	ds, err := c.Durations(ctx, []string{ref})
	if err != nil {
		return 0, err
	}
	return ds[ref], nil
}

// Durations resolves many refs at once. Refs the API does not know are absent
// from the result.
func (c *YouTubeClient) Durations(ctx context.Context, refs []string) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration, len(refs))
	if !c.Enabled() || len(refs) == 0 {
		return out, nil
	}

	missing := c.fromCache(ctx, refs, out)
	for start := 0; start < len(missing); start += maxIDsPerRequest {
		end := start + maxIDsPerRequest
		if end > len(missing) {
			end = len(missing)
		}
		fetched, err := c.fetchDurations(ctx, missing[start:end])
		if err != nil {
			return nil, err
		}
		for id, d := range fetched {
			out[id] = d
		}
		c.toCache(ctx, fetched)
	}
	return out, nil
}

func (c *YouTubeClient) fromCache(ctx context.Context, refs []string, out map[string]time.Duration) []string {
	if c.rdb == nil {
		return refs
	}
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = durationKeyPrefix + ref
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		log.Printf("worldcup-service: duration cache read: %v", err)
		return refs
	}

	var missing []string
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, refs[i])
			continue
		}
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			missing = append(missing, refs[i])
			continue
		}
		out[refs[i]] = time.Duration(ms) * time.Millisecond
	}
	return missing
}

func (c *YouTubeClient) toCache(ctx context.Context, ds map[string]time.Duration) {
	if c.rdb == nil || len(ds) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for id, d := range ds {
		pipe.Set(ctx, durationKeyPrefix+id, d.Milliseconds(), durationCacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("worldcup-service: duration cache write: %v", err)
	}
}

type ytVideosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (c *YouTubeClient) fetchDurations(ctx context.Context, ids []string) (map[string]time.Duration, error) {
	val := url.Values{}
	val.Set("part", "contentDetails")
	val.Set("id", strings.Join(ids, ","))
	val.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.videosURL+"?"+val.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube videos status %d", resp.StatusCode)
	}

	var body ytVideosResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	durations := make(map[string]time.Duration, len(body.Items))
	for _, item := range body.Items {
		d, err := parseISO8601Duration(item.ContentDetails.Duration)
		if err != nil {
			log.Printf("worldcup-service: video %s: %v", item.ID, err)
			continue
		}
		durations[item.ID] = d
	}
	return durations, nil
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

var errBadDuration = errors.New("bad ISO 8601 duration")

// parseISO8601Duration parses the YouTube form P#DT#H#M#S.
func parseISO8601Duration(s string) (time.Duration, error) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("%w: %q", errBadDuration, s)
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errBadDuration, s)
		}
		total += time.Duration(n) * unit
	}
	return total, nil
}
