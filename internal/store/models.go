package store

import (
	"time"

	"gorm.io/datatypes"
)

// ReportState holds one imported dataset plus its display mapping.
type ReportState struct {
	ID        uint           `gorm:"primaryKey"`
	Category  string         `gorm:"size:128;not null;uniqueIndex:idx_report_category_user"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_report_category_user"`
	Data      datatypes.JSON `gorm:"type:json"`
	Mapping   datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ReportState) TableName() string { return "report_states" }

type ServiceTicket struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	CategoryKey   string    `gorm:"size:32" json:"category_key"`
	CategoryLabel string    `gorm:"size:64" json:"category_label"`
	FaultType     string    `gorm:"size:256" json:"fault_type"`
	OrderNumber   string    `gorm:"size:64;index" json:"order_number"`
	Username      string    `gorm:"size:128" json:"username"`
	CustomerCode  string    `gorm:"size:128" json:"customer_code"`
	CustomerName  string    `gorm:"size:256" json:"customer_name"`
	MachineCode   string    `gorm:"size:128" json:"machine_code"`
	MachineSerial string    `gorm:"size:128" json:"machine_serial"`
	MainSub       string    `gorm:"size:32" json:"main_sub"`
	Status        string    `gorm:"size:128" json:"status"`
	Sim1          string    `gorm:"size:64" json:"sim1"`
	Sim2          string    `gorm:"size:64" json:"sim2"`
	Services      string    `gorm:"type:text" json:"services"`
	Maintenance   string    `gorm:"size:128" json:"maintenance"`
}

func (ServiceTicket) TableName() string { return "service_tickets" }
