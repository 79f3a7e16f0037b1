package api

import (
	"net/http"

	"github.com/hupe1980/vtable"
	"github.com/hupe1980/vtable/model"
)

// IDResponse is returned by the create endpoints and by updateCell.
type IDResponse struct {
	ID string `json:"id"`
}

// CellValue is the body of PUT /v1/rows/{rowId}/cells/{columnId}. A null
// value clears the cell.
type CellValue struct {
	Value *string `json:"value"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var in vtable.NewTable
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.db.CreateTable(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.write(w, r, http.StatusCreated, IDResponse{ID: string(id)})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	var owner *string
	if q := r.URL.Query(); q.Has("ownerId") {
		v := q.Get("ownerId")
		owner = &v
	}
	ts, err := s.db.ListTables(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.write(w, r, http.StatusOK, ts)
}

func (s *Server) handleAssembleTable(w http.ResponseWriter, r *http.Request) {
	id := model.TableID(r.PathValue("id"))
	view, err := s.db.AssembleTable(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if view == nil {
		s.writeError(w, r, &vtable.NotFoundError{Kind: "table", ID: string(id)})
		return
	}
	s.write(w, r, http.StatusOK, view)
}

func (s *Server) handleUpdateTable(w http.ResponseWriter, r *http.Request) {
	var patch vtable.TablePatch
	if err := s.decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.db.UpdateTable(r.Context(), model.TableID(r.PathValue("id")), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteTable(r.Context(), model.TableID(r.PathValue("id"))); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateColumn(w http.ResponseWriter, r *http.Request) {
	var in vtable.NewColumn
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.TableID = model.TableID(r.PathValue("id"))
	id, err := s.db.CreateColumn(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.write(w, r, http.StatusCreated, IDResponse{ID: string(id)})
}

func (s *Server) handleUpdateColumn(w http.ResponseWriter, r *http.Request) {
	var patch vtable.ColumnPatch
	if err := s.decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.db.UpdateColumn(r.Context(), model.ColumnID(r.PathValue("id")), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteColumn(r.Context(), model.ColumnID(r.PathValue("id"))); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateRow(w http.ResponseWriter, r *http.Request) {
	id, err := s.db.CreateRow(r.Context(), model.TableID(r.PathValue("id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.write(w, r, http.StatusCreated, IDResponse{ID: string(id)})
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteRow(r.Context(), model.RowID(r.PathValue("id"))); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateCell(w http.ResponseWriter, r *http.Request) {
	var in CellValue
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.db.UpdateCell(r.Context(),
		model.RowID(r.PathValue("rowId")),
		model.ColumnID(r.PathValue("columnId")),
		in.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.write(w, r, http.StatusOK, IDResponse{ID: string(id)})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in vtable.NewMessage
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.db.SendMessage(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.write(w, r, http.StatusCreated, IDResponse{ID: string(id)})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.db.ListMessages(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.write(w, r, http.StatusOK, msgs)
}
