package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/qualitrace/qualitrace/internal/authorization"
	docdomain "github.com/qualitrace/qualitrace/internal/document/domain"
)

type CreateDocumentRequest struct {
	ProjectID    string `json:"project_id"`
	SystemID     string `json:"system_id"`
	Title        string `json:"title"`
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
	FileRef      string `json:"file_ref"`
}

type UpdateDocumentContentRequest struct {
	Title         *string `json:"title"`
	Content       *string `json:"content"`
	FileRef       *string `json:"file_ref"`
	ChangeSummary string  `json:"change_summary"`
}

type DraftDocumentRequest struct {
	DocumentType string `json:"document_type"`
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
}

func (s *Server) CreateDocument(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectDocument, authorization.ActionCreate) {
		return
	}
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	projectID, err := parseOptionalID(req.ProjectID)
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_id", "invalid project id"))
		return
	}
	systemID, err := parseOptionalID(req.SystemID)
	if err != nil {
		AbortWithError(c, newValidationError("system_id", "invalid_id", "invalid system id"))
		return
	}

	doc, err := s.documentSvc.Create(c.Request.Context(), userID, docdomain.CreateDocumentRequest{
		ProjectID:    projectID,
		SystemID:     systemID,
		Title:        req.Title,
		DocumentType: req.DocumentType,
		Content:      req.Content,
		FileRef:      req.FileRef,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) GetDocument(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectDocument, authorization.ActionView) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := s.documentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) ListDocuments(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectDocument, authorization.ActionView) {
		return
	}

	docs, err := s.documentSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) UpdateDocumentContent(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectDocument, authorization.ActionUpdate) {
		return
	}
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateDocumentContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.documentSvc.UpdateContent(c.Request.Context(), id, userID, docdomain.UpdateContentRequest{
		Title:         req.Title,
		Content:       req.Content,
		FileRef:       req.FileRef,
		ChangeSummary: req.ChangeSummary,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) ListDocumentVersions(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectDocument, authorization.ActionView) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	versions, err := s.documentSvc.ListVersions(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (s *Server) SubmitDocument(c *gin.Context) {
	s.documentTransition(c, authorization.ActionDocumentSubmit, func(id, _ snowflake.ID) (*docdomain.Document, error) {
		return s.documentSvc.Submit(c.Request.Context(), id)
	})
}

func (s *Server) ApproveDocument(c *gin.Context) {
	s.documentTransition(c, authorization.ActionDocumentApprove, func(id, userID snowflake.ID) (*docdomain.Document, error) {
		return s.documentSvc.Approve(c.Request.Context(), id, userID)
	})
}

func (s *Server) RejectDocument(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.documentTransition(c, authorization.ActionDocumentReject, func(id, userID snowflake.ID) (*docdomain.Document, error) {
		return s.documentSvc.Reject(c.Request.Context(), id, userID, req.Reason)
	})
}

func (s *Server) documentTransition(c *gin.Context, action string, fn func(id, userID snowflake.ID) (*docdomain.Document, error)) {
	if !s.authorize(c, authorization.ObjectDocument, action) {
		return
	}
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := fn(id, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DraftDocument produces a starting draft body without persisting anything.
func (s *Server) DraftDocument(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectDocument, authorization.ActionCreate) {
		return
	}
	var req DraftDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if !docdomain.ValidType(req.DocumentType) {
		AbortWithError(c, docdomain.ErrInvalidType)
		return
	}

	content, err := s.draftsProvider.Draft(c.Request.Context(), req.DocumentType, req.Title, req.Instructions)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_type": req.DocumentType, "title": req.Title, "content": content})
}
