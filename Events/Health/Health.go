package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

type Handler struct {
	Log *logrus.Logger
}

func (h *Handler) Handle(r chi.Router) {
	r.Get("/", utils.Endpoint(h.Log, h.Check))
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) error {
	return utils.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "Everything is O.K")
}
