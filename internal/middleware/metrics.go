package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// HTTPObserver принимает наблюдения по HTTP запросам
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, seconds float64)
}

// Metrics создает middleware, которое считает запросы по шаблону маршрута
func Metrics(observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// Шаблон маршрута известен только после роутинга
			route := routeLabel(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			observer.ObserveHTTP(r.Method, route, status, time.Since(start).Seconds())
		})
	}
}

// routeLabel возвращает шаблон маршрута в том виде, в котором он зарегистрирован.
// chi отрезает завершающий слэш в RoutePattern, а маршруты API заканчиваются на "/".
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	pattern := rctx.RoutePattern()
	if pattern == "" {
		return "unmatched"
	}
	if pattern != "/" && strings.HasSuffix(r.URL.Path, "/") && !strings.HasSuffix(pattern, "/") {
		pattern += "/"
	}
	return pattern
}
