package models

import "time"

type MpesaPayment struct {
	ID                 uint `gorm:"primaryKey"`
	SchoolID           uint `gorm:"index;uniqueIndex:uniq_school_mpesa_payment"`
	PaymentID          uint `gorm:"uniqueIndex:uniq_school_mpesa_payment"`
	PhoneNumber        string
	CheckoutRequestID  string `gorm:"index"`
	MerchantRequestID  string
	ResultCode         string
	ResultDesc         string
	MpesaReceiptNumber string `gorm:"index"`
	TransactionDate    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
