package auth

import (
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"

	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

// Require rejects requests without a valid access token and stashes the
// caller's uid on the context for the handlers downstream.
func (s *Service) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r, AccessTokenCookie)
		if token == "" {
			unauthorized(w, "Unauthorized Access")
			return
		}

		claims, err := s.VerifyAccessToken(token)
		if err != nil {
			unauthorized(w, "Invalid Access Token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUID(r.Context(), claims.UID)))
	})
}

// CallerID returns the authenticated caller's ObjectID. Only meaningful on
// routes behind Require.
func CallerID(r *http.Request) (bson.ObjectID, bool) {
	uid, ok := UIDFromContext(r.Context())
	if !ok {
		return bson.NilObjectID, false
	}
	id, err := bson.ObjectIDFromHex(uid)
	if err != nil {
		return bson.NilObjectID, false
	}
	return id, true
}

func unauthorized(w http.ResponseWriter, message string) {
	utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse{
		Status:     "error",
		StatusCode: http.StatusUnauthorized,
		Message:    message,
	})
}
