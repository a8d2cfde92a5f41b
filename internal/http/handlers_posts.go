package http

import (
	"net/http"
	"strconv"
	"time"

	"finbook/internal/core"
)

type postResponse struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ImagePath string    `json:"imagePath,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type commentResponse struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	Author    string    `json:"author"`
	ParentID  *int64    `json:"parentId,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPostResponse(p core.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Author:    p.Author,
		Title:     p.Title,
		Body:      p.Body,
		ImagePath: p.ImagePath,
		CreatedAt: p.CreatedAt,
	}
}

func toCommentResponse(c core.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    c.Author,
		ParentID:  c.ParentID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		ImagePath string `json:"imagePath"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	p := core.Post{
		UserID:    user.ID,
		Title:     req.Title,
		Body:      req.Body,
		ImagePath: req.ImagePath,
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.content.CreatePost(r.Context(), &p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	p.Author = user.Username

	writeJSON(w, http.StatusCreated, toPostResponse(p))
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.content.ListPosts(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	p, comments, err := s.content.GetPost(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	commentsOut := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		commentsOut = append(commentsOut, toCommentResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"post":     toPostResponse(*p),
		"comments": commentsOut,
	})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := s.content.DeletePost(r.Context(), user, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request, user *core.User) {
	postID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	var req struct {
		Body     string `json:"body"`
		ParentID *int64 `json:"parentId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	c := core.Comment{
		PostID:   postID,
		UserID:   user.ID,
		ParentID: req.ParentID,
		Body:     req.Body,
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.content.CreateComment(r.Context(), &c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	c.Author = user.Username

	writeJSON(w, http.StatusCreated, toCommentResponse(c))
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := s.content.DeleteComment(r.Context(), user, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
