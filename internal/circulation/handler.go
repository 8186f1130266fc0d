package circulation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the lending API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/loans", h.HandleListLoans)
	r.Post("/loans", h.HandleCreateLoan)
	r.Get("/loans/{id}", h.HandleGetLoan)
	r.Put("/loans/{id}/return", h.HandleReturnLoan)
	r.Get("/members/{id}/loans", h.HandleListMemberLoans)
	r.Get("/books/{id}/loans", h.HandleListBookLoans)
	return r
}

func (h *Handler) HandleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *Handler) HandleReturnLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.ReturnLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) HandleGetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// HandleListLoans lists every loan, or only those in ?status=.
func (h *Handler) HandleListLoans(w http.ResponseWriter, r *http.Request) {
	var (
		loans []*LoanView
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		loans, err = h.service.ListLoansByStatus(r.Context(), Status(status))
	} else {
		loans, err = h.service.ListLoans(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) HandleListMemberLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoansByMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// HandleListBookLoans requires ?status=.
func (h *Handler) HandleListBookLoans(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	loans, err := h.service.ListLoansByBookAndStatus(r.Context(), bookID, Status(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidArgument):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
