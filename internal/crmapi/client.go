package crmapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the CRM answers 404.
var ErrNotFound = errors.New("crm: resource not found")

// Client is a thin HTTP client for the GoHighLevel REST API.
type Client struct {
	baseURL    string
	apiKey     string
	version    string
	locationID string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// Contact is the subset of a GHL contact the studio reads.
type Contact struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Tags      []string `json:"tags,omitempty"`
}

// FullName joins first and last name.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// NewClient constructs a client. version is sent in the Version header on every call.
func NewClient(baseURL, apiKey, version, locationID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		version:    version,
		locationID: locationID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// GetContact fetches a contact by id.
func (c *Client) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	endpoint := fmt.Sprintf("%s/contacts/%s", c.baseURL, url.PathEscape(contactID))
	cacheKey := "ghl:contact:" + contactID
	var wrap struct {
		Contact Contact `json:"contact"`
	}

	if c.readCache(ctx, cacheKey, &wrap) {
		return &wrap.Contact, nil
	}

	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, wrap)
	return &wrap.Contact, nil
}

// DeleteAppointment removes a calendar event. A missing event returns ErrNotFound.
func (c *Client) DeleteAppointment(ctx context.Context, appointmentID string) error {
	endpoint := fmt.Sprintf("%s/calendars/events/%s", c.baseURL, url.PathEscape(appointmentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, nil)
}

// HealthCheck verifies the credentials by reading the configured location.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.locationID == "" {
		return fmt.Errorf("crm: location id is not configured")
	}
	endpoint := fmt.Sprintf("%s/locations/%s", c.baseURL, url.PathEscape(c.locationID))
	if err := c.doGet(ctx, endpoint, nil); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("crm: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.version != "" {
		req.Header.Set("Version", c.version)
	}
}
