package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-compras/internal/application/dto"
	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// ProcurementHandler maneja solicitudes de compra (SC), órdenes de compra (OC) y recepciones.
type ProcurementHandler struct {
	requisitions *procurement.RequisitionUseCase
	orders       *procurement.OrderUseCase
	receiving    *procurement.ReceivingUseCase
	recalc       *procurement.CostRecalculator
	log          *logger.Logger
}

// NewProcurementHandler construye el handler.
func NewProcurementHandler(
	requisitions *procurement.RequisitionUseCase,
	orders *procurement.OrderUseCase,
	receiving *procurement.ReceivingUseCase,
	recalc *procurement.CostRecalculator,
	log *logger.Logger,
) *ProcurementHandler {
	return &ProcurementHandler{
		requisitions: requisitions,
		orders:       orders,
		receiving:    receiving,
		recalc:       recalc,
		log:          log,
	}
}

// CreateRequisition godoc
// @Summary      Crear solicitud de compra
// @Tags         requisitions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateRequisitionRequest  true  "líneas, moneda y OT vinculada"
// @Success      201   {object}  dto.DataResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/requisitions [post]
func (h *ProcurementHandler) CreateRequisition(c *fiber.Ctx) error {
	var in dto.CreateRequisitionRequest
	if handled, err := parseBody(c, &in); handled {
		return err
	}
	lines := make([]procurement.RequisitionLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, procurement.RequisitionLineInput{
			ProductID:         l.ProductID,
			Qty:               l.Qty,
			EstimatedUnitCost: l.EstimatedUnitCost,
		})
	}
	out, err := h.requisitions.Create(c.UserContext(), procurement.CreateRequisitionInput{
		RequesterID: GetUserID(c),
		JobID:       in.JobID,
		Currency:    in.Currency,
		Note:        in.Note,
		Lines:       lines,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusCreated, dto.RequisitionCreatedResponse{ID: out.ID, Code: out.Code})
}

// GetRequisition godoc
// @Summary      Obtener solicitud de compra
// @Tags         requisitions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.DataResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/requisitions/{id} [get]
func (h *ProcurementHandler) GetRequisition(c *fiber.Ctx) error {
	req, err := h.requisitions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusOK, toRequisitionResponse(req))
}

// UpdateRequisitionCosts godoc
// @Summary      Editar costos estimados de líneas
// @Tags         requisitions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la solicitud"
// @Param        body  body  dto.UpdateRequisitionCostsRequest  true  "costos por línea"
// @Success      200   {object}  dto.DataResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requisitions/{id}/costs [put]
func (h *ProcurementHandler) UpdateRequisitionCosts(c *fiber.Ctx) error {
	var in dto.UpdateRequisitionCostsRequest
	if handled, err := parseBody(c, &in); handled {
		return err
	}
	lines := make([]procurement.LineCostInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, procurement.LineCostInput{LineID: l.LineID, EstimatedCost: l.EstimatedCost})
	}
	id := c.Params("id")
	if err := h.requisitions.UpdateCosts(c.UserContext(), id, lines); err != nil {
		return writeError(c, h.log, err)
	}
	req, err := h.requisitions.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusOK, toRequisitionResponse(req))
}

// SetRequisitionState godoc
// @Summary      Cambiar estado de la solicitud
// @Description  PENDING_ADMIN → PENDING_GERENCIA → APPROVED; REJECTED/CANCELLED según la máquina de estados.
// @Tags         requisitions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la solicitud"
// @Param        body  body  dto.SetRequisitionStateRequest  true  "estado destino y nota"
// @Success      200   {object}  dto.DataResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requisitions/{id}/state [post]
func (h *ProcurementHandler) SetRequisitionState(c *fiber.Ctx) error {
	var in dto.SetRequisitionStateRequest
	if handled, err := parseBody(c, &in); handled {
		return err
	}
	id := c.Params("id")
	if err := h.requisitions.SetState(c.UserContext(), id, entity.RequisitionState(in.State), in.Note); err != nil {
		return writeError(c, h.log, err)
	}
	req, err := h.requisitions.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusOK, toRequisitionResponse(req))
}

// CreateOrder godoc
// @Summary      Emitir orden de compra desde una solicitud aprobada
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "solicitud, proveedor, código y líneas"
// @Success      201   {object}  dto.DataResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *ProcurementHandler) CreateOrder(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if handled, err := parseBody(c, &in); handled {
		return err
	}
	lines := make([]procurement.OrderLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, procurement.OrderLineInput{ProductID: l.ProductID, Qty: l.Qty, UnitCost: l.UnitCost})
	}
	out, err := h.orders.Create(c.UserContext(), procurement.CreateOrderInput{
		RequisitionID: in.RequisitionID,
		ProviderID:    in.ProviderID,
		Code:          in.Code,
		Currency:      in.Currency,
		Lines:         lines,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusCreated, dto.OrderCreatedResponse{
		ID: out.ID, Code: out.Code, Total: out.Total, Currency: out.Currency,
	})
}

// GetOrder godoc
// @Summary      Obtener orden de compra
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la OC"
// @Success      200  {object}  dto.DataResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *ProcurementHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.orders.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusOK, toOrderResponse(order))
}

// ListOrderReceipts godoc
// @Summary      Movimientos de recepción de una OC
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la OC"
// @Success      200  {object}  dto.DataResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/receipts [get]
func (h *ProcurementHandler) ListOrderReceipts(c *fiber.Ctx) error {
	movs, err := h.orders.Receipts(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusOK, toMovementList(movs))
}

// GetOrderPDF godoc
// @Summary      Descargar PDF de la orden de compra
// @Tags         orders
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la OC"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/pdf [get]
func (h *ProcurementHandler) GetOrderPDF(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.orders.RenderPDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(pdfBytes)
}

// ReceiveOrder godoc
// @Summary      Registrar recepción (total o parcial) de una OC
// @Description  Sin items = recepción total de lo pendiente. Actualiza el costo promedio de los productos recibidos.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la OC"
// @Param        body  body  dto.ReceiveOrderRequest  true  "factura del proveedor e items recibidos"
// @Success      200   {object}  dto.DataResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/receipts [post]
func (h *ProcurementHandler) ReceiveOrder(c *fiber.Ctx) error {
	var in dto.ReceiveOrderRequest
	if len(c.Body()) > 0 {
		if handled, err := parseBody(c, &in); handled {
			return err
		}
	}
	items := make([]procurement.ReceiveItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, procurement.ReceiveItem{ProductID: it.ProductID, Qty: it.Qty})
	}
	res, err := h.receiving.Receive(c.UserContext(), procurement.ReceiveInput{
		OrderID:    c.Params("id"),
		InvoiceRef: in.InvoiceRef,
		Items:      items,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusOK, toReceiveResponse(res))
}

// RecalculateProductCosts godoc
// @Summary      Recalcular el costo promedio de todos los productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.DataResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/products/costs/recalculate [post]
func (h *ProcurementHandler) RecalculateProductCosts(c *fiber.Ctx) error {
	res, err := h.recalc.RecalculateAll(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusOK, dto.RecalculateCostsResponse{
		UpdatedCount: res.UpdatedCount,
		SkippedCount: res.SkippedCount,
	})
}
