package handler

import (
	"net/http"

	"github.com/escala/escala/internal/constraints"
	"github.com/escala/escala/pkg/errors"
)

// Rules 返回引擎支持的规则目录
func Rules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{Library: constraints.GetLibrary()})
}
