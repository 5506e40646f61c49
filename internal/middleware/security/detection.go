// Package security flags hostile-looking requests and sets browser
// hardening headers.
package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// DetectionMetrics are cumulative counters.
type DetectionMetrics struct {
	SuspiciousRequests int64
	SuspiciousInputs   int64
	InvalidIPAttempts  int64
}

// Detector flags requests that look like probes or injection attempts.
// It never rejects on its own; Middleware decides what to do with a hit.
type Detector struct {
	suspiciousRequests atomic.Int64
	suspiciousInputs   atomic.Int64
	invalidIPAttempts  atomic.Int64
	trustedProxies     []*net.IPNet
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

// Input patterns are narrower than path patterns: expense names are free
// text and "0x" or "base64" are legitimate there.
var suspiciousInputPatterns = []string{
	"<script", "javascript:", "onerror=", "onload=", "union select", "eval(",
}

var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
}

var unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
			parseCIDR("::1/128"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// DetectSuspiciousRequest checks the path, query, user agent, method and
// forwarding headers of r.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	suspicious := containsAny(strings.ToLower(r.URL.Path), suspiciousPatterns) ||
		containsAny(strings.ToLower(r.URL.RawQuery), suspiciousPatterns) ||
		containsAny(strings.ToLower(r.Header.Get("User-Agent")), suspiciousAgents) ||
		len(r.URL.String()) > 2048

	for _, method := range unusualMethods {
		if r.Method == method {
			suspicious = true
		}
	}

	if xff := r.Header.Get("X-Forwarded-For"); strings.Count(xff, ",") > 5 {
		suspicious = true
	}

	if suspicious {
		d.suspiciousRequests.Add(1)
	}
	return suspicious
}

// InspectForm reports whether any submitted value looks like markup or SQL
// injection. Values are escaped on output regardless.
func (d *Detector) InspectForm(values url.Values) bool {
	for _, vs := range values {
		for _, v := range vs {
			if containsAny(strings.ToLower(v), suspiciousInputPatterns) {
				d.suspiciousInputs.Add(1)
				return true
			}
		}
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	if s == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the client address, honouring X-Forwarded-For and
// X-Real-IP only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		return directIP
	}

	if d.isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			clientIP := strings.TrimSpace(first)
			if net.ParseIP(clientIP) != nil {
				return clientIP
			}
			d.invalidIPAttempts.Add(1)
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			if net.ParseIP(xri) != nil {
				return xri
			}
			d.invalidIPAttempts.Add(1)
		}
	}

	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspiciousRequests.Load(),
		SuspiciousInputs:   d.suspiciousInputs.Load(),
		InvalidIPAttempts:  d.invalidIPAttempts.Load(),
	}
}

func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// Middleware logs suspicious requests. Requests using an unusual method or
// probing for traversal are answered with 400; everything else passes.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			clientIP := d.ExtractClientIP(r)
			slog.WarnContext(r.Context(), "Suspicious request",
				"component", "security",
				"client_ip", clientIP,
				"method", r.Method,
				"path", r.URL.Path,
				"user_agent", r.Header.Get("User-Agent"))
			if isBlocking(r) {
				http.Error(w, "Bad request", http.StatusBadRequest)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isBlocking(r *http.Request) bool {
	for _, method := range unusualMethods {
		if r.Method == method {
			return true
		}
	}
	p := strings.ToLower(r.URL.Path)
	return strings.Contains(p, "../") || strings.Contains(p, "..\\") || strings.Contains(p, "etc/passwd")
}
