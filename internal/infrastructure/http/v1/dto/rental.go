package dto

import (
	"time"

	"rentory/internal/core/apperror"
	"rentory/internal/core/types"
	"rentory/internal/domain/documents/rental"
	"rentory/internal/domain/ledger"
)

// RentalLineRequest is one rented item.
type RentalLineRequest struct {
	ItemID      string         `json:"itemId" binding:"required,uuid"`
	Quantity    types.Quantity `json:"quantity"`
	DailyRate   string         `json:"dailyRate" binding:"required"`
	DaysPlanned int            `json:"daysPlanned" binding:"required,min=1"`
}

// CreateRentalOrderRequest for creating rental orders.
type CreateRentalOrderRequest struct {
	CustomerName string              `json:"customerName" binding:"required"`
	LocationID   string              `json:"locationId" binding:"required,uuid"`
	DueDate      *time.Time          `json:"dueDate"`
	Date         *time.Time          `json:"date"`
	Comment      string              `json:"comment"`
	Lines        []RentalLineRequest `json:"lines" binding:"required,min=1"`
}

// ToDocument builds a new rental order from the request.
func (r *CreateRentalOrderRequest) ToDocument() (*rental.RentalOrder, error) {
	locationID, err := parseID("locationId", r.LocationID)
	if err != nil {
		return nil, err
	}

	doc := rental.NewRentalOrder(r.CustomerName, locationID)
	doc.DueDate = r.DueDate
	doc.Comment = r.Comment
	if r.Date != nil {
		doc.Date = *r.Date
	}

	if err := appendRentalLines(doc, r.Lines); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateRentalOrderRequest replaces the header and lines of a draft order.
type UpdateRentalOrderRequest struct {
	CustomerName *string             `json:"customerName"`
	DueDate      *time.Time          `json:"dueDate"`
	Date         *time.Time          `json:"date"`
	Comment      *string             `json:"comment"`
	Lines        []RentalLineRequest `json:"lines"`
	Version      int                 `json:"version" binding:"required,min=1"`
}

// ApplyTo patches an existing order in place. A non-nil Lines slice
// replaces the whole table part.
func (r *UpdateRentalOrderRequest) ApplyTo(doc *rental.RentalOrder) error {
	if r.CustomerName != nil {
		doc.CustomerName = *r.CustomerName
	}
	if r.DueDate != nil {
		doc.DueDate = r.DueDate
	}
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}
	if r.Lines != nil {
		doc.Lines = doc.Lines[:0]
		if err := appendRentalLines(doc, r.Lines); err != nil {
			return err
		}
	}
	doc.SetVersion(r.Version)
	return nil
}

func appendRentalLines(doc *rental.RentalOrder, lines []RentalLineRequest) error {
	for _, line := range lines {
		itemID, err := parseID("lines.itemId", line.ItemID)
		if err != nil {
			return err
		}
		dailyRate, err := types.NewMoneyFromString(line.DailyRate)
		if err != nil {
			return invalidMoney("dailyRate", line.DailyRate)
		}
		doc.AddLine(itemID, line.Quantity, dailyRate, line.DaysPlanned)
	}
	return nil
}

// --- Returns ---

// RentalReturnLineRequest is one returned line.
type RentalReturnLineRequest struct {
	LineID    string         `json:"lineId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity"`
	Condition string         `json:"condition" binding:"required,oneof=GOOD DAMAGED"`
}

// RegisterReturnRequest brings rented stock back against order lines.
type RegisterReturnRequest struct {
	Lines []RentalReturnLineRequest `json:"lines" binding:"required,min=1"`
}

// ToReturns converts request lines into service return requests.
func (r *RegisterReturnRequest) ToReturns() ([]rental.ReturnRequest, error) {
	returns := make([]rental.ReturnRequest, 0, len(r.Lines))
	for i, line := range r.Lines {
		lineID, err := parseID("lines.lineId", line.LineID)
		if err != nil {
			return nil, err
		}
		condition := ledger.ReturnCondition(line.Condition)
		if condition != ledger.ConditionGood && condition != ledger.ConditionDamaged {
			return nil, apperror.NewValidation("invalid return condition").
				WithDetail("lineNo", i+1).
				WithDetail("value", line.Condition)
		}
		returns = append(returns, rental.ReturnRequest{
			LineID:    lineID,
			Quantity:  line.Quantity,
			Condition: condition,
		})
	}
	return returns, nil
}

// RentalListQuery extends the document list query with rental-specific filters.
type RentalListQuery struct {
	DocumentListQuery

	Status    string     `form:"status" binding:"omitempty,oneof=DRAFT OPEN CLOSED"`
	DueBefore *time.Time `form:"dueBefore" time_format:"2006-01-02T15:04:05Z07:00"`
}
