package handler

import (
	"encoding/json"
	"net/http"

	"marketplace-be/internal/address"
	"marketplace-be/internal/apperror"
	"marketplace-be/internal/order"
	"marketplace-be/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity" binding:"min=1"`
}

type createOrderRequest struct {
	Items         []orderItemRequest `json:"items" binding:"required,min=1,dive"`
	Address       *address.Fields    `json:"address"`
	AddressID     *uuid.UUID         `json:"addressId"`
	PaymentMethod payment.Method     `json:"paymentMethod" binding:"omitempty,oneof=card cod upi"`
	Total         decimal.Decimal    `json:"total"`
}

// editOrderRequest is the complete set of fields a buyer may send when
// editing; anything else in the body is rejected.
type editOrderRequest struct {
	ShippingAddress *address.Fields `json:"shippingAddress"`
}

type updateItemStatusRequest struct {
	ItemIDs []uuid.UUID  `json:"itemIds" binding:"required,min=1"`
	Status  order.Status `json:"status" binding:"required,oneof=pending shipped delivered cancelled"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	items := make([]order.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, err := h.svc.Orders.Create(c.Request.Context(), caller(c), order.CreateInput{
		Items:         items,
		Address:       req.Address,
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
		Total:         req.Total,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListForBuyer(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	o, err := h.svc.Orders.Cancel(c.Request.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) EditOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req editOrderRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		fail(c, apperror.Validation("INVALID_REQUEST", err.Error()))
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	o, err := h.svc.Orders.Edit(c.Request.Context(), caller(c), id, order.EditInput{
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) OrderHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.svc.Orders.History(c.Request.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) ListSellerOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListForSeller(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) UpdateItemStatus(c *gin.Context) {
	id, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	var req updateItemStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.svc.Orders.UpdateItemStatus(c.Request.Context(), caller(c), id, req.ItemIDs, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
