package hikconnect

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"device-monitor-backend/config"
	"device-monitor-backend/internal/model"
)

// Fixed constants of the portal API. Only tests override the base URL.
const (
	defaultBaseURL = "https://iind-team.hikcentralconnect.com"
	loginPath      = "/hcc/auth/security/v1/ticket/login"
	devicesPath    = "/hcc/device/resource/v1/serials/batch"

	headerClientSource = "X-Client-Source"
	clientSource       = "hcc-web"
	userAgent          = "device-monitor-backend/1.0"
)

// defaultSessionTTL is assumed when the login response carries no expiry.
const defaultSessionTTL = 12 * time.Hour

// Client talks to the Hik-Connect portal. It performs exactly one network
// attempt per call and never retries; a failed call is reported as an error
// for the caller to treat as "no data this cycle". It never fabricates
// device data.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mode      model.AuthMode
	username  string
	password  string
	apiKey    string
	apiSecret string
	loginKey  *rsa.PublicKey

	session Session
	log     *logrus.Entry
}

// NewClient builds a portal client from a stored credential set. Any
// previously persisted session is carried over so a still-valid ticket is
// reused instead of logging in again.
func NewClient(cred *model.Credential, cfg config.VendorConfig, logger *logrus.Entry) (*Client, error) {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.WithError(err).Warnf("invalid proxy URL %q, continuing without a proxy", cfg.HTTPProxy)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := &Client{
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		baseURL:    baseURL,
		mode:       cred.AuthMode,
		username:   cred.Username,
		password:   cred.Password,
		apiKey:     cred.APIKey,
		apiSecret:  cred.APISecret,
		log:        logger,
	}

	if cred.SessionID != "" && cred.SessionExpiry != nil {
		c.session = Session{
			Token:       cred.SessionID,
			FeatureCode: cred.FeatureCode,
			CustomerNo:  cred.CustomerNo,
			Expiry:      *cred.SessionExpiry,
		}
	}

	if cfg.LoginPublicKey != "" {
		key, err := parsePublicKey(cfg.LoginPublicKey)
		if err != nil {
			return nil, fmt.Errorf("parse login public key: %w", err)
		}
		c.loginKey = key
	}

	return c, nil
}

// Session returns the current in-memory session. The caller is responsible
// for persisting it back to the credential store after a refresh; the
// client has no storage access.
func (c *Client) Session() Session {
	return c.session
}

// IsSessionValid reports whether a data request can be issued without a
// fresh login. An expiry exactly at the current instant counts as expired.
// Static key/secret credentials do not expire.
func (c *Client) IsSessionValid() bool {
	if c.mode == model.AuthModeAPIKey {
		return c.apiKey != "" && c.apiSecret != ""
	}
	return c.session.Token != "" && c.session.Expiry.After(time.Now())
}

// Authenticate performs the handshake the configured auth mode requires and
// updates the in-memory session on success.
func (c *Client) Authenticate(ctx context.Context) (Session, error) {
	switch c.mode {
	case model.AuthModeAPIKey:
		if c.apiKey == "" || c.apiSecret == "" {
			return Session{}, &AuthError{Reason: "api key/secret not configured"}
		}
		// Requests are signed individually; there is no session to obtain.
		return Session{}, nil
	default:
		return c.ticketLogin(ctx)
	}
}

type loginResponse struct {
	ErrorCode   string `json:"errorCode"`
	Ticket      string `json:"ticket"`
	SessionID   string `json:"sessionId"`
	FeatureCode string `json:"featureCode"`
	CustomNo    string `json:"customNo"`
	ExpireTime  int64  `json:"expireTime"`
}

func (c *Client) ticketLogin(ctx context.Context) (Session, error) {
	password := c.password
	if c.loginKey != nil {
		encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, c.loginKey, []byte(password))
		if err != nil {
			return Session{}, &AuthError{Reason: fmt.Sprintf("encrypt login payload: %v", err)}
		}
		password = base64.StdEncoding.EncodeToString(encrypted)
	}

	body, err := json.Marshal(map[string]string{
		"account":  c.username,
		"password": password,
	})
	if err != nil {
		return Session{}, &AuthError{Reason: fmt.Sprintf("marshal login payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return Session{}, &AuthError{Reason: err.Error()}
	}
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, &AuthError{Reason: fmt.Sprintf("login request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Session{}, &AuthError{StatusCode: resp.StatusCode, Reason: "login rejected"}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Session{}, &AuthError{Reason: fmt.Sprintf("read login response: %v", err)}
	}

	var loginResp loginResponse
	if err := json.Unmarshal(respBody, &loginResp); err != nil {
		return Session{}, &AuthError{Reason: fmt.Sprintf("malformed login response: %v", err)}
	}

	token := firstNonEmpty(loginResp.Ticket, loginResp.SessionID)
	if token == "" {
		return Session{}, &AuthError{StatusCode: resp.StatusCode, Reason: "no ticket in login response"}
	}

	expiry := time.Now().Add(defaultSessionTTL)
	if loginResp.ExpireTime > 0 {
		expiry = time.Unix(loginResp.ExpireTime, 0)
	}

	c.session = Session{
		Token:       token,
		FeatureCode: loginResp.FeatureCode,
		CustomerNo:  loginResp.CustomNo,
		Expiry:      expiry,
	}
	c.log.WithField("expiry", expiry).Info("hik-connect login succeeded")
	return c.session, nil
}

type devicesResponse struct {
	ErrorCode  string      `json:"errorCode"`
	Data       []rawDevice `json:"data"`
	DeviceList []rawDevice `json:"deviceList"`
}

// FetchDevicesBySerials issues the portal's batch device lookup for the
// given serial numbers, logging in first if the session is absent or
// expired. An error means the call failed, which is distinct from the
// portal reporting zero devices.
func (c *Client) FetchDevicesBySerials(ctx context.Context, serials []string) ([]VendorDevice, error) {
	if len(serials) == 0 {
		return nil, nil
	}

	if !c.IsSessionValid() {
		if _, err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(map[string]any{"deviceSerials": serials})
	if err != nil {
		return nil, fmt.Errorf("marshal device lookup payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+devicesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create device lookup request: %w", err)
	}
	c.setCommonHeaders(req)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("device lookup returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read device lookup response: %w", err)
	}

	raws, err := decodeDevices(respBody)
	if err != nil {
		return nil, fmt.Errorf("malformed device lookup response: %w", err)
	}

	devices := make([]VendorDevice, 0, len(raws))
	for _, raw := range raws {
		device, ok := mapDevice(raw)
		if !ok {
			c.log.Warnf("skipping vendor record without id/serial: %+v", raw)
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// decodeDevices tolerates both envelope shapes the portal has used: a bare
// array and an object wrapping the array under "data" or "deviceList".
func decodeDevices(body []byte) ([]rawDevice, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []rawDevice
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}
	var resp devicesResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, err
	}
	if resp.Data != nil {
		return resp.Data, nil
	}
	return resp.DeviceList, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(headerClientSource, clientSource)
}

// authorize attaches either the session ticket or the static request
// signature, depending on the credential's auth mode.
func (c *Client) authorize(req *http.Request) {
	if c.mode == model.AuthModeAPIKey {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		req.Header.Set("X-Ca-Key", c.apiKey)
		req.Header.Set("X-Ca-Timestamp", timestamp)
		req.Header.Set("X-Ca-Signature", c.sign(req.Method, req.URL.Path, timestamp))
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token)
	if c.session.FeatureCode != "" {
		req.Header.Set("X-Feature-Code", c.session.FeatureCode)
	}
	if c.session.CustomerNo != "" {
		req.Header.Set("X-Customer-No", c.session.CustomerNo)
	}
}

func (c *Client) sign(method, path, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	fmt.Fprintf(mac, "%s\n%s\n%s", method, path, timestamp)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func parsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return rsaKey, nil
}
