package vsphere

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/opslynx/patchlynx/pkg/models"
	"github.com/opslynx/patchlynx/pkg/utils"
)

const tokenExpiryWarning = 5 * time.Minute

// Session holds the authenticated state for one management server. It is
// passed explicitly into every component that talks to the server; there is
// no ambient global connection.
type Session struct {
	cfg    models.ConnectionConfig
	http   *http.Client
	logger *logrus.Logger

	mu         sync.RWMutex
	sessionID  string
	apiVersion string
	build      string
	active     bool
}

func NewSession(cfg models.ConnectionConfig, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	client := utils.DefaultHTTPClient()
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	if cfg.Insecure {
		if tr, ok := client.Transport.(*http.Transport); ok {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}
	return &Session{cfg: cfg, http: client, logger: logger}
}

// Login authenticates either with a bearer token (SSO access token) or with
// username/password against the session endpoint, then captures the server's
// API version for capability detection.
func (s *Session) Login(ctx context.Context) error {
	if s.cfg.Server == "" {
		return fmt.Errorf("%w: no server configured", ErrNotConnected)
	}

	if s.cfg.Token != "" {
		if err := s.checkToken(s.cfg.Token); err != nil {
			return err
		}
		s.mu.Lock()
		s.sessionID = s.cfg.Token
		s.active = true
		s.mu.Unlock()
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Server+"/rest/com/vmware/cis/session", nil)
		if err != nil {
			return fmt.Errorf("build session request: %w", err)
		}
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)

		resp, err := s.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("%w: session endpoint returned %s", ErrNotConnected, resp.Status)
		}

		var out struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode session response: %w", err)
		}
		s.mu.Lock()
		s.sessionID = out.Value
		s.active = true
		s.mu.Unlock()
	}

	if err := s.fetchVersion(ctx); err != nil {
		s.logger.Warnf("Could not determine server version: %v", err)
	}
	s.logger.Infof("Session established with %s (API version %s)", s.cfg.Server, s.APIVersion())
	return nil
}

// checkToken decodes the bearer token without verifying the signature (the
// server verifies it) purely to detect expiry before a long run starts.
func (s *Session) checkToken(token string) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("invalid bearer token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		s.logger.Debug("Bearer token carries no expiry claim")
		return nil
	}
	remaining := time.Until(exp.Time)
	if remaining <= 0 {
		return fmt.Errorf("%w: bearer token expired at %s", ErrNotConnected, exp.Time.Format(time.RFC3339))
	}
	if remaining < tokenExpiryWarning {
		s.logger.Warnf("Bearer token expires in %s; the run may outlive it", remaining.Round(time.Second))
	}
	return nil
}

func (s *Session) fetchVersion(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Server+"/rest/appliance/system/version", nil)
	if err != nil {
		return err
	}
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("version endpoint returned %s", resp.Status)
	}

	var out struct {
		Value struct {
			Version string `json:"version"`
			Build   string `json:"build"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}

	s.mu.Lock()
	s.apiVersion = strings.TrimSpace(out.Value.Version)
	s.build = out.Value.Build
	s.mu.Unlock()
	return nil
}

func (s *Session) authorize(req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.sessionID)
	} else {
		req.Header.Set("vmware-api-session-id", s.sessionID)
	}
}

// Active reports whether Login succeeded and Logout has not been called.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// APIVersion is the server's reported platform version, empty if unknown.
func (s *Session) APIVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiVersion
}

func (s *Session) Server() string { return s.cfg.Server }

func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil
	}
	s.active = false
	if s.cfg.Token != "" {
		// Bearer sessions are owned by the token issuer; nothing to delete.
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.cfg.Server+"/rest/com/vmware/cis/session", nil)
	if err != nil {
		return err
	}
	req.Header.Set("vmware-api-session-id", s.sessionID)
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	s.sessionID = ""
	return nil
}
