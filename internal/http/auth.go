package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"digitalstore/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const contextKeySession contextKey = "session"

// Session is the verified identity carried through a request. It comes
// exclusively from the signed token, never from query or body parameters.
type Session struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) generateJWT(user models.User) (string, error) {
	if s.cfg.JWTSecretKey == "" {
		return "", errors.New("JWT secret key not configured")
	}
	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.JWTExpiry())),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "digitalstore",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecretKey))
}

func (s *Server) jwtMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, errors.New("missing authorization header"))
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			respondError(w, http.StatusUnauthorized, errors.New("invalid authorization header format"))
			return
		}
		if s.cfg.JWTSecretKey == "" {
			respondError(w, http.StatusInternalServerError, errors.New("JWT secret key not configured"))
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(s.cfg.JWTSecretKey), nil
		})
		if err != nil {
			respondError(w, http.StatusUnauthorized, errors.New("invalid or expired token"))
			return
		}
		claims, ok := token.Claims.(*JWTClaims)
		if !ok || !token.Valid {
			respondError(w, http.StatusUnauthorized, errors.New("invalid token claims"))
			return
		}

		ctx := context.WithValue(r.Context(), contextKeySession, Session{
			UserID: claims.UserID,
			Email:  claims.Email,
			Name:   claims.Name,
			Role:   claims.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionFromContext(r.Context()).Role != models.RoleAdmin {
			respondError(w, http.StatusForbidden, errors.New("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(ctx context.Context) Session {
	if sess, ok := ctx.Value(contextKeySession).(Session); ok {
		return sess
	}
	return Session{}
}

func isAdmin(ctx context.Context) bool {
	return sessionFromContext(ctx).Role == models.RoleAdmin
}

var accessDeniedMessages = map[string]string{
	models.AccessReasonNotPurchased: "you have not purchased this product",
	models.AccessReasonExpired:      "your access to this product has expired",
	models.AccessReasonInactive:     "your access to this product has been deactivated",
}

func accessDeniedMessage(reason string) string {
	if msg, ok := accessDeniedMessages[reason]; ok {
		return msg
	}
	return "access denied"
}

type resourceKind int

const (
	resourceProduct resourceKind = iota
	resourceModule
	resourceMaterial
)

// requireAccess gates a route on a valid entitlement for the resource named
// by the "id" URL param. Module and material resources resolve up to their
// owning product inside the evaluator.
func (s *Server) requireAccess(kind resourceKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFromContext(r.Context())
			resourceID := chi.URLParam(r, "id")
			if resourceID == "" {
				respondError(w, http.StatusBadRequest, errors.New("id is required"))
				return
			}

			var result models.AccessResult
			switch kind {
			case resourceModule:
				result = s.svc.VerifyModuleAccess(r.Context(), sess.UserID, resourceID)
			case resourceMaterial:
				result = s.svc.VerifyMaterialAccess(r.Context(), sess.UserID, resourceID)
			default:
				result = s.svc.VerifyProductAccess(r.Context(), sess.UserID, resourceID)
			}
			if !result.HasAccess {
				respondDenied(w, result.Reason, accessDeniedMessage(result.Reason))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
