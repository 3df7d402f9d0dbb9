package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/earshot-app/earshot/internal/trace"
)

// handleInfo reports the base URLs a viewer on the LAN can reach.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()
	payload := map[string]any{
		"hostname":    hostname,
		"urls":        localBaseURLs(s.cfg.Port),
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		trace.Logger(r.Context()).Error("failed to encode info payload", "error", err)
	}
}

// handleQR renders a QR code for a viewer URL, defaulting to the first
// LAN base URL.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("target"))

	if target == "" {
		urls := localBaseURLs(s.cfg.Port)
		if len(urls) == 0 {
			http.Error(w, "no LAN URLs found", http.StatusNotFound)
			return
		}
		target = urls[0]
	} else {
		var err error
		target, err = sanitizeTarget(target)
		if err != nil {
			http.Error(w, "invalid target", http.StatusBadRequest)
			return
		}
	}

	img, err := qrcode.Encode(target, qrcode.Medium, QRSize)
	if err != nil {
		http.Error(w, "failed to create QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img); err != nil {
		trace.Logger(r.Context()).Error("failed to write QR payload", "error", err)
	}
}

// localBaseURLs lists reachable http base URLs: localhost, the
// hostname, and every non-loopback IPv4 address.
func localBaseURLs(port string) []string {
	var urls []string
	seen := make(map[string]struct{})

	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	add(fmt.Sprintf("http://localhost:%s", port))
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		add(fmt.Sprintf("http://%s:%s", hostname, port))
		add(fmt.Sprintf("http://%s.local:%s", hostname, port))
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return urls
	}

	for _, iface := range ifaces {
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagLoopback) != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			if ip == nil || ip.IsLoopback() {
				continue
			}
			ip = ip.To4()
			if ip == nil {
				continue
			}
			if !ip.IsPrivate() && !ip.IsGlobalUnicast() {
				continue
			}
			add(fmt.Sprintf("http://%s:%s", ip.String(), port))
		}
	}

	return urls
}

// sanitizeTarget accepts only absolute http/https URLs.
func sanitizeTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("empty target")
	}

	parsed, err := url.ParseRequestURI(target)
	if err != nil {
		return "", err
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", scheme)
	}
	return parsed.String(), nil
}
