package middleware

import (
	"net/http"
	"net/netip"
	"strings"
)

// TrustedSubnet пропускает только клиентов, чей X-Real-IP входит в подсеть.
// Невалидная подсеть означает, что доступ закрыт для всех.
func TrustedSubnet(cidr string) func(http.Handler) http.Handler {
	prefix, perr := netip.ParsePrefix(strings.TrimSpace(cidr))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if perr != nil {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP")))
			if err != nil || !prefix.Contains(addr.Unmap()) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
