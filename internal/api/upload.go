package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/starford/wordmaster/internal/apperr"
	"github.com/starford/wordmaster/internal/importer"
)

const maxImportBytes = 10 << 20 // 10 MB

// Import handles POST /api/import.
//
// The body is either multipart/form-data with a text file in field "file",
// or the raw word list as text/plain.
//
//	@Summary		Replace the collection with words from a text file
//	@Tags			words
//	@Accept			multipart/form-data
//	@Accept			plain
//	@Produce		json
//	@Param			file	formData	file	false	"Word file"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	data, err := readImport(r)
	if err != nil {
		if statusFor(err) != 0 {
			writeError(w, "import", err)
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}

	snap, n, err := h.ctrl.Import(string(data))
	if err != nil {
		writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: n, State: snap})
}

func readImport(r *http.Request) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: missing or invalid content type", apperr.ErrNotText)
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return nil, fmt.Errorf("file too large or invalid multipart")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing 'file' field in multipart form")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file")
		}
		if err := importer.CheckText(header.Filename, data); err != nil {
			return nil, err
		}
		return data, nil

	case "text/plain":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read body")
		}
		if err := importer.CheckText("", data); err != nil {
			return nil, err
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: unsupported content type %s", apperr.ErrNotText, mediaType)
}
