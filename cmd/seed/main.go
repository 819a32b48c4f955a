package main

import (
	"encoding/csv"
	"os"
	"strconv"

	"childcare-reconciliation-backend/internal/config"
	"childcare-reconciliation-backend/internal/logger"
	"childcare-reconciliation-backend/internal/models"
	"childcare-reconciliation-backend/internal/repository"

	"github.com/joho/godotenv"
)

// Seeds the payer directory from a CSV of enrolled children:
// student_number,first_name,last_name,payment_reference,monthly_fee
//
//	go run ./cmd/seed payers.csv
func main() {
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, relying on system env")
	}

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: seed <payers.csv>")
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open payer file")
	}
	defer f.Close()

	db := config.InitDB()
	if err := db.AutoMigrate(&models.Payer{}); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	repo := repository.NewPayerRepository(db)

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 5

	records, err := reader.ReadAll()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot read payer file")
	}

	created := 0
	for _, rec := range records {
		if rec[0] == "student_number" {
			continue // header
		}
		fee, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			log.Warn().Str("student", rec[0]).Msg("skipping row with bad fee")
			continue
		}
		inserted, err := repo.CreateIfNew(&models.Payer{
			StudentNumber:    rec[0],
			FirstName:        rec[1],
			LastName:         rec[2],
			PaymentReference: rec[3],
			MonthlyFee:       fee,
			Active:           true,
		})
		if err != nil {
			log.Fatal().Err(err).Str("student", rec[0]).Msg("insert failed")
		}
		if inserted {
			created++
		}
	}
	log.Info().Int("created", created).Int("rows", len(records)).Msg("payer seed done")
}
