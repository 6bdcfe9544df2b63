package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fixkme/timerex/errs"
)

func ResponseError(c *gin.Context, httpStatus int, err error) {
	errCode, errDesc := parserError(err)
	c.JSON(httpStatus, gin.H{
		"status": errCode,
		"error":  errDesc,
		"data":   gin.H{},
		"_links": gin.H{
			"self": gin.H{
				"href": c.Request.RequestURI,
			},
		},
	})
}

func ResponseSuccess(c *gin.Context, data any) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": errs.ErrCode_OK,
		"error":  "",
		"data":   data,
		"_links": gin.H{
			"self": gin.H{
				"href": c.Request.RequestURI,
			},
		},
	})
}

// statusOf 错误码到http状态
func statusOf(err error) int {
	switch errs.CodeOf(err) {
	case errs.ErrCode_BadRequest, errs.ErrCode_InvalidHook:
		return http.StatusBadRequest
	case errs.ErrCode_NotFound:
		return http.StatusNotFound
	case errs.ErrCode_Exhausted:
		return http.StatusTooManyRequests
	case errs.ErrCode_Closed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func parserError(err error) (errCode int, errDesc string) {
	codeErr := errs.WrapError(err)
	return int(codeErr.Code()), codeErr.Error()
}
