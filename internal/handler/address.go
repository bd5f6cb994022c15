package handler

import (
	"net/http"

	"marketplace-be/internal/address"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAddresses(c *gin.Context) {
	addrs, err := h.svc.Addresses.List(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, addrs)
}

func (h *Handler) CreateAddress(c *gin.Context) {
	var req address.Fields
	if !bindJSON(c, &req) {
		return
	}

	addr, err := h.svc.Addresses.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, addr)
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req address.Fields
	if !bindJSON(c, &req) {
		return
	}

	addr, err := h.svc.Addresses.Update(c.Request.Context(), caller(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

func (h *Handler) DeleteAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Addresses.Delete(c.Request.Context(), caller(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
}
