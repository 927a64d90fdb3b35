package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"friendlychat/backend/internal/authctx"
	"friendlychat/backend/internal/config"
	"friendlychat/backend/internal/domain/chat"
	"friendlychat/backend/internal/domain/identity"
	"friendlychat/backend/internal/httpjson"
	"friendlychat/backend/internal/middleware"
)

// multipart overhead allowed on top of the image size limit
const multipartSlack = 1 << 20

type RouterDeps struct {
	Cfg  config.Config
	Chat *chat.Service
	View *View
}

type addMessageRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.Cfg.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Write(w, 200, map[string]any{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/view", func(w http.ResponseWriter, _ *http.Request) {
			httpjson.Write(w, 200, map[string]any{"route": d.View.Route()})
		})

		r.Post("/session", func(w http.ResponseWriter, r *http.Request) {
			token, ok := middleware.BearerToken(r)
			if !ok {
				httpjson.Error(w, 401, "missing Authorization: Bearer <token>")
				return
			}
			s, err := d.Chat.Login(r.Context(), identity.Credential{IDToken: token})
			if err != nil {
				failErr(w, err)
				return
			}
			httpjson.Write(w, 200, map[string]any{"session": s, "route": d.View.Route()})
		})

		r.Delete("/session", func(w http.ResponseWriter, r *http.Request) {
			if err := d.Chat.Logout(r.Context()); err != nil {
				status, msg := mapChatError(err)
				httpjson.Write(w, status, map[string]any{"message": msg, "route": d.View.Route()})
				return
			}
			httpjson.Write(w, 200, map[string]any{"route": d.View.Route()})
		})

		r.With(middleware.RequireSession(d.Chat.CurrentUser)).Get("/me", func(w http.ResponseWriter, r *http.Request) {
			s, _ := authctx.Session(r.Context())
			httpjson.Write(w, 200, s)
		})

		r.Post("/messages", func(w http.ResponseWriter, r *http.Request) {
			var req addMessageRequest
			if err := httpjson.Read(w, r, &req); err != nil {
				httpjson.Error(w, 400, err.Error())
				return
			}
			ref, err := d.Chat.AddMessage(r.Context(), req.Text, req.ImageURL)
			if err != nil {
				failErr(w, err)
				return
			}
			httpjson.Write(w, 201, ref)
		})

		r.Post("/messages/image", func(w http.ResponseWriter, r *http.Request) {
			maxBytes := d.Cfg.MaxImageBytes
			if maxBytes <= 0 {
				maxBytes = chat.DefaultImageOptions.MaxBytes
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)

			file, header, err := r.FormFile("file")
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					httpjson.Error(w, 413, "image too large")
					return
				}
				httpjson.Error(w, 400, "multipart field \"file\" is required")
				return
			}
			defer file.Close()

			ref, err := d.Chat.SaveImageMessage(r.Context(), chat.ImageUpload{
				FileName: header.Filename,
				Body:     file,
			})
			if err != nil {
				failErr(w, err)
				return
			}
			httpjson.Write(w, 201, ref)
		})

		r.Get("/live", newLiveHandler(d.Chat, d.Cfg.AllowedOrigins).ServeHTTP)
	})

	return r
}
