package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"

	"cashbook/internal/attachments"
	"cashbook/internal/core"
	"cashbook/internal/importer"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
)

// multipartMemory is the part of a multipart body kept in memory; the rest spills to disk.
const multipartMemory = 1 << 20

func (s *Server) money(m core.Money) moneyDTO {
	return moneyDTO{Value: m.String(), Cents: m.Cents, Display: s.currency.Format(m)}
}

func (s *Server) transaction(ctx context.Context, tx core.Transaction) transactionDTO {
	return transactionDTO{
		ID:            tx.ID,
		Date:          tx.Date.String(),
		Description:   tx.Description,
		Amount:        s.money(tx.Amount),
		Kind:          tx.Kind,
		Category:      tx.Category,
		Color:         s.registry.ColorOf(ctx, tx.Category, tx.Kind),
		PaymentMethod: tx.PaymentMethod,
		Notes:         tx.Notes,
		HasAttachment: tx.AttachmentRef != "",
		CreatedAt:     tx.CreatedAt,
	}
}

func (s *Server) transactions(ctx context.Context, txs []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, s.transaction(ctx, tx))
	}
	return out
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipart parses the body and converts read failures into client errors.
func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return badRequest{msg: "invalid multipart body: " + err.Error()}
	}
	return nil
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	byKind, err := s.registry.ByKind(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	type categoryDTO struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	out := map[core.Kind][]categoryDTO{core.KindIncome: {}, core.KindExpense: {}}
	for kind, cats := range byKind {
		for _, c := range cats {
			out[kind] = append(out[kind], categoryDTO{Name: c.Name, Color: c.Color})
		}
	}
	NewJSONResponse().JSON(out).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	rows, err := s.svc.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().JSON(s.transactions(r.Context(), rows)).Write(w)
}

// handleCreateTransaction accepts JSON, or a multipart form whose optional
// "attachment" part is stored with the row.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var (
		req    transactionRequest
		upload *ledger.Upload
	)
	if isMultipart(r) {
		if err := parseMultipart(r); err != nil {
			s.writeError(w, r, log.OpCreate, err)
			return
		}
		defer r.MultipartForm.RemoveAll()
		req = transactionRequestFromForm(r.PostForm)

		file, hdr, err := r.FormFile("attachment")
		switch {
		case err == nil:
			defer file.Close()
			upload = &ledger.Upload{Filename: hdr.Filename, Content: file}
		case !errors.Is(err, http.ErrMissingFile):
			s.writeError(w, r, log.OpCreate, badRequest{msg: "invalid attachment: " + err.Error()})
			return
		}
	} else if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.svc.Create(r.Context(), tx, upload)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/transactions/%d", saved.ID)).
		JSON(s.transaction(r.Context(), saved)).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	tx, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().JSON(s.transaction(r.Context(), tx)).Write(w)
}

func (s *Server) handleReplaceTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, log.OpReplace, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpReplace, err)
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		s.writeError(w, r, log.OpReplace, err)
		return
	}
	tx.ID = id
	saved, err := s.svc.Replace(r.Context(), tx)
	if err != nil {
		s.writeError(w, r, log.OpReplace, err)
		return
	}
	NewJSONResponse().JSON(s.transaction(r.Context(), saved)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	rc, ref, err := s.svc.Attachment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	defer rc.Close()

	contentType, ok := attachments.MIMEType(ref)
	if !ok {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", path.Base(ref)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Attachment stream interrupted",
			log.FieldTransactionID, id, log.FieldError, err)
	}
}

// handleExtract suggests the amount printed on an uploaded receipt. It answers
// 200 even when no suggestion is available so clients fall back to manual entry.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := parseMultipart(r); err != nil {
		s.writeError(w, r, log.OpExtract, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, log.OpExtract, badRequest{msg: "missing file part"})
		return
	}
	defer file.Close()

	type suggestionDTO struct {
		Available bool   `json:"available"`
		Amount    string `json:"amount"`
		Display   string `json:"display,omitempty"`
		Reason    string `json:"reason,omitempty"`
	}
	sg := s.svc.SuggestFromUpload(r.Context(), hdr.Filename, file, s.maxUpload)
	out := suggestionDTO{Available: sg.Available, Amount: sg.Amount.String()}
	if sg.Available {
		out.Display = s.currency.Format(sg.Amount)
	} else if sg.Err != nil {
		out.Reason = sg.Err.Error()
	}
	NewJSONResponse().JSON(out).Write(w)
}

// handleImport loads a CSV, XLSX or OFX file picked by its extension.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := parseMultipart(r); err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, log.OpImport, badRequest{msg: "missing file part"})
		return
	}
	defer file.Close()

	read, ok := importer.ReaderFor(hdr.Filename)
	if !ok {
		ErrorResponse(http.StatusUnsupportedMediaType, "unsupported import file type: want .csv, .xlsx or .ofx").Write(w)
		return
	}
	table, err := read(file)
	if err != nil {
		if !errors.Is(err, importer.ErrEmptyTable) {
			err = badRequest{msg: "cannot read import file: " + err.Error()}
		}
		s.writeError(w, r, log.OpImport, err)
		return
	}

	res, err := s.svc.Import(r.Context(), table, nil)
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	if res.Rejections == nil {
		res.Rejections = []importer.RowError{}
	}
	NewJSONResponse().JSON(res).Write(w)
}
