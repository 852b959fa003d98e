package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/NazeerGreene/WeatherApp/internal/config"
	"github.com/NazeerGreene/WeatherApp/internal/model"
	"github.com/NazeerGreene/WeatherApp/internal/observability"
)

// the visitor holds the rate limiter and last seen time for a specific IP address.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// paramVisitor holds the rate limiter and last seen time for a specific IP and location.
type paramVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	// globalVisitors maps IP addresses to their corresponding visitor struct for global rate limiting.
	globalVisitors = make(map[string]*visitor) // key: ip
	// paramVisitors maps IP addresses and locations to their corresponding paramVisitor struct for per-location rate limiting.
	paramVisitors = make(map[string]map[string]*paramVisitor) // key: ip -> location -> visitor
	muGlobal      sync.Mutex
	muParam       sync.Mutex
)

// getGlobalLimiter returns the rate limiter for the given IP address, creating one if it does not exist.
func getGlobalLimiter(ip string) *rate.Limiter {
	muGlobal.Lock()
	defer muGlobal.Unlock()
	v, exists := globalVisitors[ip]
	if !exists {
		r, burst := config.GetGlobalRateLimiterConfig()
		limiter := rate.NewLimiter(rate.Limit(r/60.0), burst)
		globalVisitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// getParamLimiter returns the rate limiter for the given IP address and location, creating one if it does not exist.
func getParamLimiter(ip, param string) *rate.Limiter {
	muParam.Lock()
	defer muParam.Unlock()
	if _, ok := paramVisitors[ip]; !ok {
		paramVisitors[ip] = make(map[string]*paramVisitor)
	}
	v, exists := paramVisitors[ip][param]
	if !exists {
		r, burst := config.GetParamRateLimiterConfig()
		limiter := rate.NewLimiter(rate.Limit(r/60.0), burst)
		paramVisitors[ip][param] = &paramVisitor{limiter, time.Now()}
		return limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupGlobalVisitors periodically removes globalVisitors entries that have not been seen recently.
func cleanupGlobalVisitors() {
	staleAfter := config.GetRateLimiterCleanupTimeout()
	for {
		time.Sleep(time.Minute)
		muGlobal.Lock()
		for ip, v := range globalVisitors {
			if time.Since(v.lastSeen) > staleAfter {
				delete(globalVisitors, ip)
			}
		}
		muGlobal.Unlock()
	}
}

// cleanupParamVisitors periodically removes paramVisitors entries that have not been seen recently.
func cleanupParamVisitors() {
	staleAfter := config.GetRateLimiterCleanupTimeout()
	for {
		time.Sleep(time.Minute)
		muParam.Lock()
		for ip, paramMap := range paramVisitors {
			for param, v := range paramMap {
				if time.Since(v.lastSeen) > staleAfter {
					delete(paramMap, param)
				}
			}
			if len(paramMap) == 0 {
				delete(paramVisitors, ip)
			}
		}
		muParam.Unlock()
	}
}

// StartRateLimiterCleanup starts background goroutines to clean up stale visitors for both limiters.
func StartRateLimiterCleanup() {
	go cleanupGlobalVisitors()
	go cleanupParamVisitors()
}

// ResetVisitors clears all visitor states for both global and per-location limiters. Used primarily for testing.
func ResetVisitors() {
	muGlobal.Lock()
	for k := range globalVisitors {
		delete(globalVisitors, k)
	}
	muGlobal.Unlock()
	muParam.Lock()
	for k := range paramVisitors {
		delete(paramVisitors, k)
	}
	muParam.Unlock()
}

// getIP extracts the client's IP address from the HTTP request, considering X-Forwarded-For headers.
func getIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

// getParam extracts the location path variable from the matched route. The
// bare-location route names it "address", the dated routes "location".
func getParam(r *http.Request) string {
	vars := mux.Vars(r)
	if v := vars["address"]; v != "" {
		return v
	}
	return vars["location"]
}

// RateLimitMiddleware enforces global and per-location rate limiting.
// If the rate limit is exceeded, it responds with a 429 status and a JSON error message.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r)
		globalLimiter := getGlobalLimiter(ip)
		if !globalLimiter.Allow() {
			observability.RateLimitDeniedTotal.Inc()
			writeRateLimitError(w, "Rate limit exceeded: too many requests per minute per user/IP", "Too Many Requests (global limit)")
			return
		}
		// Routes without a location variable (health, metrics) are only
		// subject to the global limiter; probers and scrapers must not
		// exhaust a shared per-location bucket.
		if param := getParam(r); param != "" {
			paramLimiter := getParamLimiter(ip, param)
			if !paramLimiter.Allow() {
				observability.RateLimitDeniedTotal.Inc()
				writeRateLimitError(w, "Rate limit exceeded: too many requests per minute per location per user/IP", "Too Many Requests (per-location limit)")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeRateLimitError(w http.ResponseWriter, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	resp := model.Response{
		Error:   &errMsg,
		Message: message,
	}
	_ = json.NewEncoder(w).Encode(resp)
}
