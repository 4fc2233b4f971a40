package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"contract-intel/api/response"
	"contract-intel/pkg/logger"
	"contract-intel/service"
	"contract-intel/types"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ContractHandler struct {
	svc           *service.ContractService
	maxUploadSize int64
	log           *slog.Logger
}

func NewContractHandler(svc *service.ContractService, maxUploadSize int64, log *slog.Logger) *ContractHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ContractHandler{svc: svc, maxUploadSize: maxUploadSize, log: log}
}

// Upload 上传合同，分析在后台进行
func (h *ContractHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "missing multipart field 'file'")
		return
	}
	if h.maxUploadSize > 0 && fh.Size > h.maxUploadSize {
		response.Fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUploadSize))
		return
	}
	src, err := fh.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "cannot read uploaded file")
		return
	}
	defer src.Close()

	contract, err := h.svc.Upload(c.Request.Context(), fh.Filename, src, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Accepted(c, gin.H{"id": contract.ID, "status": contract.Status})
}

func (h *ContractHandler) Analyze(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Analyze(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Accepted(c, gin.H{"id": id, "status": "processing"})
}

type listQuery struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit"`
}

func (h *ContractHandler) List(c *gin.Context) {
	q := listQuery{Limit: 100}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Fail(c, http.StatusBadRequest, "skip and limit must be integers")
		return
	}
	contracts, err := h.svc.List(c.Request.Context(), q.Skip, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, contracts)
}

func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, contract)
}

func (h *ContractHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "deleted": true})
}

func (h *ContractHandler) Export(c *gin.Context) {
	name, data, err := h.svc.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *ContractHandler) AskGlobal(c *gin.Context) {
	h.ask(c, "")
}

func (h *ContractHandler) Ask(c *gin.Context) {
	h.ask(c, c.Param("id"))
}

func (h *ContractHandler) ask(c *gin.Context, contractID string) {
	var req types.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "question is required")
		return
	}
	resp, err := h.svc.Ask(c.Request.Context(), req.Question, contractID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *ContractHandler) Compare(c *gin.Context) {
	var req types.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "contract_id_1 and contract_id_2 are required")
		return
	}
	resp, err := h.svc.Compare(c.Request.Context(), req.ContractID1, req.ContractID2)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *ContractHandler) Rewrite(c *gin.Context) {
	var req types.RewriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "clause_text and instruction are required")
		return
	}
	response.Success(c, h.svc.Rewrite(c.Request.Context(), req.ClauseText, req.Instruction))
}

func (h *ContractHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *ContractHandler) UpdateAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid alert id")
		return
	}
	var req types.AlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "status must be one of pending, sent, resolved")
		return
	}
	alert, err := h.svc.UpdateAlertStatus(c.Request.Context(), uint(id), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, alert)
}

func Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// fail 业务错误映射到 HTTP 状态码
func (h *ContractHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUnsupportedType):
		response.Fail(c, http.StatusBadRequest, err.Error())
	default:
		logger.FromContext(c.Request.Context(), h.log).Error("http.handler.failed", "path", c.FullPath(), "error", err)
		response.Fail(c, http.StatusInternalServerError, "internal error")
	}
}
