// Package clientinfo determines the caller's public IP and user agent for
// access auditing. Probing is best-effort and never returns an error.
package clientinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LocalhostIP is reported when the public IP cannot be determined.
const LocalhostIP = "localhost"

const DefaultTimeout = 3 * time.Second

type Info struct {
	IP        string
	UserAgent string
	Referrer  string
}

type Prober interface {
	Probe(ctx context.Context) Info
}

// Environment supplies the values a browser would read from navigator/document.
type Environment interface {
	UserAgent() string
	Referrer() string
}

type StaticEnvironment struct {
	Agent   string
	Referer string
}

func (e StaticEnvironment) UserAgent() string { return e.Agent }
func (e StaticEnvironment) Referrer() string  { return e.Referer }

// EchoProbe asks an IP-echo service (ipify) for the public address.
type EchoProbe struct {
	env     Environment
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func NewEchoProbe(env Environment, url string, timeout time.Duration, client *http.Client, logger *zap.Logger) *EchoProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EchoProbe{env: env, url: url, timeout: timeout, client: client, logger: logger}
}

type echoResponse struct {
	IP string `json:"ip"`
}

func (p *EchoProbe) Probe(ctx context.Context) Info {
	info := Info{
		UserAgent: p.env.UserAgent(),
		Referrer:  p.env.Referrer(),
	}

	ip, err := p.fetchIP(ctx)
	if err != nil {
		p.logger.Warn("could not determine public IP, using fallback",
			zap.String("fallback", LocalhostIP),
			zap.Error(err))
		ip = LocalhostIP
	}
	info.IP = ip

	return info
}

func (p *EchoProbe) fetchIP(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("ip echo service returned %d", resp.StatusCode)
	}

	var body echoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode ip echo response: %w", err)
	}
	if body.IP == "" {
		return "", fmt.Errorf("ip echo service returned an empty address")
	}

	return body.IP, nil
}

// RequestProbe reads client details from an inbound HTTP request. The server
// uses it when it records access events on behalf of a caller.
type RequestProbe struct {
	r *http.Request
}

func NewRequestProbe(r *http.Request) *RequestProbe {
	return &RequestProbe{r: r}
}

func (p *RequestProbe) Probe(context.Context) Info {
	return Info{
		IP:        ClientIP(p.r),
		UserAgent: p.r.UserAgent(),
		Referrer:  p.r.Referer(),
	}
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are never
// read here; behind a trusted proxy the server's RealIP middleware has already
// rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}

// StaticProbe returns a fixed Info. It lets a caller capture request details
// up front and audit them later.
type StaticProbe struct {
	Info Info
}

func (p StaticProbe) Probe(context.Context) Info {
	return p.Info
}
