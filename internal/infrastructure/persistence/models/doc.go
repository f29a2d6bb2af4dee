// Package models holds the GORM rows behind the ledger, sales and outbox
// repositories. Domain types never carry gorm tags; each row type maps itself
// with ToDomain and a <Row>FromDomain constructor.
//
// Money columns are decimal(24,8) scanned into decimal.Decimal. AllModels
// lists the tables in foreign-key order for AutoMigrate in tests and for the
// non-embedded startup path.
package models
