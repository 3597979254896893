package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"academy/internal/fees"
	"academy/internal/notify"
	"academy/internal/report"
)

type feeResponse struct {
	ReceiptNo string      `json:"receipt_no"`
	Date      string      `json:"date"`
	StudentID int         `json:"student_id"`
	Name      string      `json:"name"`
	Amount    string      `json:"amount"`
	Mode      string      `json:"mode"`
	Status    fees.Status `json:"status"`
	Remarks   string      `json:"remarks,omitempty"`
}

func feeView(r fees.Record) feeResponse {
	return feeResponse{
		ReceiptNo: r.ReceiptNo,
		Date:      r.Date,
		StudentID: r.StudentID,
		Name:      r.Name,
		Amount:    r.Amount.StringFixed(2),
		Mode:      r.Mode,
		Status:    r.Status,
		Remarks:   r.Remarks,
	}
}

func (s *Server) recordFee(c *gin.Context) {
	var req struct {
		fees.Payment
		Template string `json:"template"`
		Dispatch bool   `json:"dispatch"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	rec, st, err := s.Fees.Record(ctx, req.Payment)
	if err != nil {
		s.fail(c, err)
		return
	}
	body := gin.H{"receipt": feeView(rec)}

	r := notify.Recipient{Name: st.Name, StudentMobile: st.StudentMobile, ParentMobile: st.ParentMobile}
	msg, err := s.Composer.FeePaid(notify.Guardian, r, notify.Context{
		Amount:    rec.Amount.StringFixed(2),
		ReceiptNo: rec.ReceiptNo,
		Status:    string(rec.Status),
	}, req.Template)
	if err != nil {
		body["message_error"] = err.Error()
	} else {
		body["message"] = composed{Message: msg, URI: msg.URI()}
		if req.Dispatch && s.Outbox.Enabled() {
			if err := s.Outbox.Publish(ctx, "fee", []notify.Message{msg}); err != nil {
				s.Logger.Warn("fee message not queued", "receipt", rec.ReceiptNo, "err", err)
			}
		}
	}

	if s.Archive != nil {
		if url, err := s.archiveReceipt(c, rec); err != nil {
			s.Logger.Warn("receipt archive failed", "receipt", rec.ReceiptNo, "err", err)
		} else {
			body["receipt_url"] = url
		}
	}
	c.JSON(http.StatusCreated, body)
}

func (s *Server) archiveReceipt(c *gin.Context, rec fees.Record) (string, error) {
	data, err := report.RenderReceiptPDF(s.Academy, rec)
	if err != nil {
		return "", err
	}
	res, err := s.Archive.UploadDocument(c.Request.Context(), data, rec.ReceiptNo+".pdf", rec.ReceiptNo)
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

func (s *Server) listFees(c *gin.Context) {
	id, err := queryID(c, "student_id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var recs []fees.Record
	if id > 0 {
		recs, err = s.Fees.ForStudent(c.Request.Context(), id)
	} else {
		recs, err = s.Fees.All(c.Request.Context())
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]feeResponse, len(recs))
	for i, r := range recs {
		out[i] = feeView(r)
	}
	c.JSON(http.StatusOK, gin.H{"fees": out})
}

func (s *Server) receiptPDF(c *gin.Context) {
	no := strings.TrimSpace(c.Param("receipt"))
	rec, err := s.Fees.Receipt(c.Request.Context(), no)
	if err != nil {
		s.fail(c, err)
		return
	}
	data, err := report.RenderReceiptPDF(s.Academy, rec)
	if err != nil {
		s.fail(c, err)
		return
	}
	download(c, rec.ReceiptNo+".pdf", pdfType, data)
}
