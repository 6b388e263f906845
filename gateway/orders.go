package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/order"
	"github.com/example/bloomcart/pkg/query"
	"github.com/gin-gonic/gin"
)

var (
	// sortFields are the scalar fields lists may be ordered by.
	sortFields = []string{
		"id", "orderNumber", "userId", "floristId", "deliverId", "status",
		"totalPrice", "city", "deliveryAddress", "createdAt",
	}
	projectFields = append(slices.Clone(sortFields), "items")
)

type createOrderRequest struct {
	UserID          string            `json:"userId"`
	FloristID       string            `json:"floristId"`
	DeliverID       string            `json:"deliverId"`
	TotalPrice      *float64          `json:"totalPrice"`
	City            string            `json:"city"`
	DeliveryAddress string            `json:"deliveryAddress"`
	Items           []models.LineItem `json:"items"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type assignDeliverRequest struct {
	DeliverID string `json:"deliverId"`
}

type setFloristRequest struct {
	FloristID string `json:"floristId"`
}

type removeItemResponse struct {
	Order   *models.Order `json:"order"`
	Removed float64       `json:"removed"`
}

type missingFloristResponse struct {
	Count   int            `json:"count"`
	Orders  []models.Order `json:"orders"`
	Message string         `json:"message"`
}

type repairResponse struct {
	Success bool               `json:"success"`
	Updated int                `json:"updated"`
	Skipped int                `json:"skipped"`
	Errors  []order.SweepError `json:"errors"`
	Message string             `json:"message"`
}

// createOrder godoc
// @Summary Create an order
// @Tags orders
// @Accept json
// @Produce json
// @Success 201 {object} models.Order
// @Router /orders [post]
func (g *Gateway) createOrder(c *gin.Context) {
	var req createOrderRequest
	if !g.bind(c, &req) {
		return
	}

	o, err := g.orders.Create(c.Request.Context(), mustActor(c), order.CreateInput{
		UserID:          req.UserID,
		FloristID:       req.FloristID,
		DeliverID:       req.DeliverID,
		TotalPrice:      req.TotalPrice,
		City:            req.City,
		DeliveryAddress: req.DeliveryAddress,
		Items:           req.Items,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (g *Gateway) getOrder(c *gin.Context) {
	o, err := g.orders.Get(c.Request.Context(), mustActor(c), c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) listOrders(c *gin.Context) {
	opts, ok := g.listOptions(c)
	if !ok {
		return
	}

	filter := models.OrderFilter{
		UserID:    strings.TrimSpace(c.Query("userId")),
		FloristID: strings.TrimSpace(c.Query("floristId")),
		DeliverID: strings.TrimSpace(c.Query("deliverId")),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := models.ParseStatus(part)
			if err != nil {
				g.respondError(c, err)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	page, err := g.orders.List(c.Request.Context(), mustActor(c), filter, opts)
	g.respondPage(c, page, opts, err)
}

func (g *Gateway) listByUser(c *gin.Context) {
	opts, ok := g.listOptions(c)
	if !ok {
		return
	}
	page, err := g.orders.ListByUser(c.Request.Context(), mustActor(c), c.Param("userId"), opts)
	g.respondPage(c, page, opts, err)
}

func (g *Gateway) listByFlorist(c *gin.Context) {
	opts, ok := g.listOptions(c)
	if !ok {
		return
	}
	page, err := g.orders.ListByFlorist(c.Request.Context(), mustActor(c), c.Param("floristId"), opts)
	g.respondPage(c, page, opts, err)
}

func (g *Gateway) listByDeliver(c *gin.Context) {
	opts, ok := g.listOptions(c)
	if !ok {
		return
	}
	page, err := g.orders.ListByDeliver(c.Request.Context(), mustActor(c), c.Param("deliverId"), opts)
	g.respondPage(c, page, opts, err)
}

func (g *Gateway) listAvailable(c *gin.Context) {
	opts, ok := g.listOptions(c)
	if !ok {
		return
	}
	page, err := g.orders.ListAvailable(c.Request.Context(), mustActor(c), opts)
	g.respondPage(c, page, opts, err)
}

func (g *Gateway) listByFlower(c *gin.Context) {
	opts, ok := g.listOptions(c)
	if !ok {
		return
	}
	page, err := g.orders.ListByFlower(c.Request.Context(), mustActor(c), c.Param("flowerId"), opts)
	g.respondPage(c, page, opts, err)
}

func (g *Gateway) floristReport(c *gin.Context) {
	report, err := g.orders.Report(c.Request.Context(), mustActor(c), c.Param("floristId"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (g *Gateway) updateStatus(c *gin.Context) {
	var req statusRequest
	if !g.bind(c, &req) {
		return
	}
	o, err := g.orders.Transition(c.Request.Context(), mustActor(c), c.Param("id"), req.Status)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) assignDeliver(c *gin.Context) {
	var req assignDeliverRequest
	if !g.bindOptional(c, &req) {
		return
	}
	o, err := g.orders.AssignDeliver(c.Request.Context(), mustActor(c), c.Param("id"), req.DeliverID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) setFlorist(c *gin.Context) {
	var req setFloristRequest
	if !g.bind(c, &req) {
		return
	}
	o, err := g.orders.SetFlorist(c.Request.Context(), mustActor(c), c.Param("id"), req.FloristID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) deleteOrder(c *gin.Context) {
	if err := g.orders.Delete(c.Request.Context(), mustActor(c), c.Param("id")); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

func (g *Gateway) addItem(c *gin.Context) {
	var item models.LineItem
	if !g.bind(c, &item) {
		return
	}
	o, err := g.orders.AddItem(c.Request.Context(), mustActor(c), c.Param("id"), item)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) updateItem(c *gin.Context) {
	var patch models.ItemPatch
	if !g.bind(c, &patch) {
		return
	}
	o, err := g.orders.UpdateItem(c.Request.Context(), mustActor(c), c.Param("id"), c.Param("flowerId"), patch)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) removeItem(c *gin.Context) {
	res, err := g.orders.RemoveItem(c.Request.Context(), mustActor(c), c.Param("id"), c.Param("flowerId"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, removeItemResponse{Order: res.Order, Removed: res.Removed})
}

func (g *Gateway) missingFlorist(c *gin.Context) {
	orders, err := g.orders.MissingFlorist(c.Request.Context(), mustActor(c))
	if err != nil {
		g.respondError(c, err)
		return
	}

	message := "All orders have floristId"
	if len(orders) > 0 {
		message = fmt.Sprintf("%d orders need floristId", len(orders))
	}
	c.JSON(http.StatusOK, missingFloristResponse{Count: len(orders), Orders: orders, Message: message})
}

func (g *Gateway) repairFlorists(c *gin.Context) {
	result, err := g.orders.RepairFlorists(c.Request.Context(), mustActor(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, repairResponse{
		Success: true,
		Updated: result.Updated,
		Skipped: result.Skipped,
		Errors:  result.Errors,
		Message: fmt.Sprintf("Updated %d orders with floristId", result.Updated),
	})
}

func (g *Gateway) listOptions(c *gin.Context) (query.Options, bool) {
	opts, err := query.Parse(c.Request.URL.Query(), sortFields, projectFields)
	if err != nil {
		g.respondError(c, err)
		return query.Options{}, false
	}
	return opts, true
}

// respondPage writes a bare array, or {data, pagination} when the caller paginated.
func (g *Gateway) respondPage(c *gin.Context, page *order.Page, opts query.Options, err error) {
	if err != nil {
		g.respondError(c, err)
		return
	}

	var data any = page.Orders
	if len(opts.Fields) > 0 {
		projected, err := project(page.Orders, opts.Fields)
		if err != nil {
			g.respondError(c, apperr.Wrap(err, "project orders"))
			return
		}
		data = projected
	}

	if page.Meta != nil {
		c.JSON(http.StatusOK, gin.H{"data": data, "pagination": page.Meta})
		return
	}
	c.JSON(http.StatusOK, data)
}

func (g *Gateway) bind(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		g.respondError(c, apperr.ValidationWithCause(err, "invalid request body"))
		return false
	}
	return true
}

// bindOptional accepts an empty body.
func (g *Gateway) bindOptional(c *gin.Context, dest any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return g.bind(c, dest)
}

// project keeps only the requested fields of each order; id is always kept.
func project(orders []models.Order, fields []string) ([]map[string]any, error) {
	keep := map[string]bool{"id": true}
	for _, f := range fields {
		keep[f] = true
	}

	out := make([]map[string]any, 0, len(orders))
	for i := range orders {
		raw, err := json.Marshal(&orders[i])
		if err != nil {
			return nil, err
		}
		var full map[string]any
		if err := json.Unmarshal(raw, &full); err != nil {
			return nil, err
		}
		for k := range full {
			if !keep[k] {
				delete(full, k)
			}
		}
		out = append(out, full)
	}
	return out, nil
}
