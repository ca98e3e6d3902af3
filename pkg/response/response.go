package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess     = 0
	CodeParamError  = 400
	CodeNotFound    = 404
	CodeServerError = 500
)

// Business codes for ledger failures. Transient codes (CodeBusy) mean the
// operation wrote nothing and may be retried.
const (
	CodeAccountNotFound     = 1001
	CodeAccountInactive     = 1002
	CodeInvalidAmount       = 1003
	CodeInsufficientBalance = 1004
	CodeRecipientNotFound   = 1005
	CodeRecipientInactive   = 1006
	CodeSelfTransfer        = 1007
	CodeEntryNotFound       = 1008
	CodeBusy                = 1009
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
