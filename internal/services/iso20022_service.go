package services

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/ruralpay/ledgersim/internal/models"
)

// ISO20022Service renders executed transfers as pacs.008 credit transfer messages.
type ISO20022Service struct {
	currency string
	agentBIC string
	now      func() time.Time
}

// NewISO20022Service creates a converter that reports amounts in currency.
func NewISO20022Service(currency, agentBIC string) *ISO20022Service {
	if currency == "" {
		currency = "USD"
	}
	if agentBIC == "" {
		agentBIC = "LEDGERSIM"
	}
	return &ISO20022Service{currency: currency, agentBIC: agentBIC, now: time.Now}
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer message for an executed transfer.
func (iso *ISO20022Service) CreatePacs008(tx *models.Transaction) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if tx == nil || !tx.Executed() {
		return nil, fmt.Errorf("pacs.008 requires an executed transaction")
	}

	msgId := uuid.New().String()
	creDtTm := iso.now()
	settlementDate := creDtTm
	txID := strconv.FormatUint(tx.ID, 10)
	amount := float64(tx.Amount)

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(iso.currency),
				Value: amount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "INDA", // booked on our own books
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(txID)}[0],
					EndToEndId: common.Max35Text(tx.ExecuteAt.String()),
					TxId:       &[]common.Max35Text{common.Max35Text(txID)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(iso.currency),
					Value: amount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "DEBT",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(iso.agentBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(tx.Sender)}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(iso.agentBIC)}[0],
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(tx.Recipient)}[0],
				},
			},
		},
	}

	// split fees are shared between both parties
	if tx.FeeMode == models.FeeSplit {
		doc.CdtTrfTxInf[0].ChrgBr = "SHAR"
	}

	return doc, nil
}

// CreatePacs002 creates a pacs.002 payment status report for a settled or discarded transfer.
func (iso *ISO20022Service) CreatePacs002(tx *models.Transaction) (*pacs_v08.FIToFIPaymentStatusReportV08, error) {
	if tx == nil {
		return nil, fmt.Errorf("pacs.002 requires a transaction")
	}

	status := "PDNG"
	switch tx.Status {
	case models.TransactionExecuted:
		status = "ACSC"
	case models.TransactionDiscarded:
		status = "RJCT"
	}

	msgId := uuid.New().String()
	creDtTm := iso.now()
	txID := strconv.FormatUint(tx.ID, 10)

	doc := &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &[]common.Max35Text{common.Max35Text(txID)}[0],
				OrgnlEndToEndId: &[]common.Max35Text{common.Max35Text(tx.ExecuteAt.String())}[0],
				OrgnlTxId:       &[]common.Max35Text{common.Max35Text(txID)}[0],
				TxSts:           &[]pacs_v08.ExternalPaymentTransactionStatus1Code{pacs_v08.ExternalPaymentTransactionStatus1Code(status)}[0],
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts ISO20022 document to XML string
func (iso *ISO20022Service) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}
