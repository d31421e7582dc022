// Package correspond drafts outbound clarification messages for payments the
// engine could not confidently match. Drafts are returned to the caller for
// review; nothing here sends mail.
package correspond

import (
	"strings"
	"text/template"

	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"
)

const clarificationTemplate = `Subject: Action Required: Payment Clarification for {{.CustomerName}}

Dear Finance Team at {{.CustomerName}},

We have received your payment of {{.Amount}} {{.Currency}}. However, our
reconciliation engine could not find an exact invoice match.

Please provide the remittance advice to ensure this is applied correctly.

Regards,
Treasury Operations
`

// Draft is a prepared clarification message awaiting review
type Draft struct {
	CustomerName string `json:"customer_name"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}

// Drafter renders clarification drafts for unmatched payments
type Drafter struct {
	tmpl *template.Template
	log  logger.Logger
}

// NewDrafter creates a drafter using the standard clarification template
func NewDrafter() *Drafter {
	return &Drafter{
		tmpl: template.Must(template.New("clarification").Parse(clarificationTemplate)),
		log:  logger.GetGlobalLogger().WithComponent("correspond"),
	}
}

// DraftClarification prepares a clarification message for a payment that
// produced no candidate above the noise floor
func (d *Drafter) DraftClarification(payment *models.IncomingPayment) (*Draft, error) {
	if payment == nil {
		return nil, errors.InvalidInputError("payment", nil, nil)
	}

	data := struct {
		CustomerName string
		Amount       string
		Currency     string
	}{
		CustomerName: strings.TrimSpace(payment.PayerName),
		Amount:       payment.Amount.StringFixed(2),
		Currency:     payment.Currency,
	}

	var rendered strings.Builder
	if err := d.tmpl.Execute(&rendered, data); err != nil {
		return nil, errors.InternalError("draft_clarification", err)
	}

	body := rendered.String()
	subject, _, _ := strings.Cut(body, "\n")
	subject = strings.TrimPrefix(subject, "Subject: ")

	d.log.WithFields(logger.Fields{
		"payer_name": data.CustomerName,
		"amount":     data.Amount,
		"currency":   data.Currency,
	}).Info("Clarification draft prepared")

	return &Draft{
		CustomerName: data.CustomerName,
		Subject:      subject,
		Body:         body,
	}, nil
}
