package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	managerdomain "github.com/tokomart/tokomart/internal/manager/domain"
	userdomain "github.com/tokomart/tokomart/internal/userdirectory/domain"
)

func (s *Server) GetManager(c *gin.Context) {
	info, err := s.managerSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) AssignManager(c *gin.Context) {
	var req managerdomain.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	info, err := s.managerSvc.Assign(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "manager.assigned", "user", info.UserID.String(), map[string]any{
		"email": info.Email,
	})

	c.JSON(http.StatusOK, info)
}

func (s *Server) CreateManagerAccount(c *gin.Context) {
	var req managerdomain.CreateAndAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	info, err := s.managerSvc.CreateAndAssign(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "manager.account_created", "user", info.UserID.String(), map[string]any{
		"email": info.Email,
	})

	c.JSON(http.StatusCreated, info)
}

func (s *Server) RemoveManager(c *gin.Context) {
	resp, err := s.managerSvc.Remove(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if resp.Removed {
		s.auditAction(c, "manager.removed", "entitlement", "", nil)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) SearchUsers(c *gin.Context) {
	var req userdomain.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	users, err := s.userSvc.Search(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
