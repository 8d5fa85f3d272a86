package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/QuestFinTech/ext-market/internal/auth"
	"github.com/QuestFinTech/ext-market/internal/models"
)

type contextKey string

const contextKeyActor contextKey = "actor"

// actorFromContext retrieves the authenticated actor placed by authorized.
func actorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(contextKeyActor).(models.Actor)
	return actor, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authorized wraps a handler with token verification and, when roles are
// given, a role gate. Ownership checks stay inside the services; this only
// answers "is the caller authenticated and plausibly allowed here".
func (a *API) authorized(next http.HandlerFunc, roles ...models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		claims, err := auth.ParseToken(a.signingKey, token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		actor := claims.Actor()

		if len(roles) > 0 {
			allowed := false
			for _, role := range roles {
				if models.HasRole(actor.Roles, role) {
					allowed = true
					break
				}
			}
			if !allowed {
				respondError(w, http.StatusForbidden, "insufficient role")
				return
			}
		}

		ctx := context.WithValue(r.Context(), contextKeyActor, actor)
		next(w, r.WithContext(ctx))
	}
}
