package migration

import (
	"gorm.io/gorm"

	bookingdomain "github.com/salasbeats/marketplace/internal/booking/domain"
	commissiondomain "github.com/salasbeats/marketplace/internal/commission/domain"
	hostdomain "github.com/salasbeats/marketplace/internal/host/domain"
	listingdomain "github.com/salasbeats/marketplace/internal/listing/domain"
	payoutdomain "github.com/salasbeats/marketplace/internal/payout/domain"
)

// Run creates or updates the schema on startup so the service is usable
// out of the box for local and self-hosted environments.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&hostdomain.Host{},
		&listingdomain.Listing{},
		&bookingdomain.Booking{},
		&commissiondomain.Record{},
		&commissiondomain.Setting{},
		&commissiondomain.RateChange{},
		&commissiondomain.Report{},
		&payoutdomain.Payout{},
	)
}
