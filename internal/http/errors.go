package http

import (
	"net/http"

	"friendlychat/backend/internal/domain/chat"
	"friendlychat/backend/internal/domain/identity"
	"friendlychat/backend/internal/domain/messages"
	"friendlychat/backend/internal/httpjson"
)

func mapChatError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case chat.IsErrBadRequest(err), messages.IsErrBadRequest(err):
		return 400, err.Error()
	case chat.IsErrUnauthorized(err), identity.IsErrInvalidCredential(err):
		return 401, err.Error()
	case chat.IsErrUploadUnavailable(err):
		return 503, err.Error()
	case chat.IsErrWriteFailed(err), chat.IsErrUploadFailed(err),
		identity.IsErrSignInFailed(err), identity.IsErrSignOutFailed(err):
		return 502, err.Error()
	default:
		return 500, err.Error()
	}
}

func failErr(w http.ResponseWriter, err error) {
	status, msg := mapChatError(err)
	httpjson.Error(w, status, msg)
}
