package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	organizationmodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/organization"
	policymodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/policy"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			// Child tables first, the FKs are RESTRICT on users.
			for _, table := range []string{"notifications", "expenses", "expense_forms", "policies", "periods", "projects", "users", "organizations"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		now := time.Now()

		org := &organizationmodel.Organization{ID: uuid.NewString(), Name: "Toplum Gönüllüleri", CreatedAt: now, UpdatedAt: now}
		var existingOrg organizationmodel.Organization
		if err := db.Where("name = ?", org.Name).First(&existingOrg).Error; err == nil {
			org = &existingOrg
			fmt.Println("organization already exists:", org.Name)
		} else if err := db.Create(org).Error; err != nil {
			log.Fatalf("failed to seed organization: %v", err)
		} else {
			fmt.Println("Seeded organization:", org.Name)
		}

		project := &organizationmodel.Project{ID: uuid.NewString(), Name: "Saha Programı", OrganizationID: org.ID, CreatedAt: now, UpdatedAt: now}
		var existingProject organizationmodel.Project
		if err := db.Where("name = ? AND organization_id = ?", project.Name, org.ID).First(&existingProject).Error; err == nil {
			project = &existingProject
		} else if err := db.Create(project).Error; err != nil {
			log.Fatalf("failed to seed project: %v", err)
		} else {
			fmt.Println("Seeded project:", project.Name)
		}

		// One period covering the current year so freshly seeded expenses
		// always find an active window.
		yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		yearEnd := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		period := &organizationmodel.Period{
			ID:        uuid.NewString(),
			Name:      fmt.Sprintf("%d Dönemi", now.Year()),
			ProjectID: project.ID,
			StartDate: yearStart,
			EndDate:   yearEnd,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		var existingPeriod organizationmodel.Period
		if err := db.Where("name = ? AND project_id = ?", period.Name, project.ID).First(&existingPeriod).Error; err == nil {
			fmt.Println("period already exists:", period.Name)
		} else if err := db.Create(period).Error; err != nil {
			log.Fatalf("failed to seed period: %v", err)
		} else {
			fmt.Println("Seeded period:", period.Name)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		users := []*usermodel.User{
			{
				ID: uuid.NewString(), Name: "Elif Admin", Email: "admin@example.org",
				PasswordHash: string(hash), Role: "ADMIN", OrganizationID: &org.ID,
				IsActive: true, CreatedAt: now, UpdatedAt: now,
			},
			{
				ID: uuid.NewString(), Name: "Mehmet Muhasebe", Email: "accountant@example.org",
				PasswordHash: string(hash), Role: "ACCOUNTANT", OrganizationID: &org.ID,
				IsActive: true, CreatedAt: now, UpdatedAt: now,
			},
			{
				ID: uuid.NewString(), Name: "Ayşe Gönüllü", Email: "volunteer@example.org",
				PasswordHash: string(hash), Role: "VOLUNTEER", OrganizationID: &org.ID,
				IBAN:     "TR330006100519786457841326",
				BankName: "Örnek Bankası", AccountHolder: "Ayşe Gönüllü", Phone: "+90 555 000 0000",
				IsActive: true, CreatedAt: now, UpdatedAt: now,
			},
		}
		for _, u := range users {
			var existing usermodel.User
			if err := db.Where("LOWER(email) = LOWER(?)", u.Email).First(&existing).Error; err == nil {
				fmt.Println("user already exists:", u.Email)
				continue
			}
			if err := db.Create(u).Error; err != nil {
				log.Fatalf("failed to seed user %s: %v", u.Email, err)
			}
			fmt.Printf("Seeded user: %s (%s)\n", u.Email, u.Role)
		}

		policies := []struct {
			Category string
			Limit    string
		}{
			{"Yemek", "500.00"},
			{"Ulaşım", "1500.00"},
			{"Konaklama", "3000.00"},
		}
		for _, p := range policies {
			var existing policymodel.Policy
			if err := db.Where("organization_id = ? AND LOWER(category) = LOWER(?)", org.ID, p.Category).First(&existing).Error; err == nil {
				fmt.Println("policy already exists:", p.Category)
				continue
			}
			limit, err := decimal.NewFromString(p.Limit)
			if err != nil {
				log.Fatalf("bad policy limit %s: %v", p.Limit, err)
			}
			policy := &policymodel.Policy{
				ID:             uuid.NewString(),
				OrganizationID: org.ID,
				Category:       p.Category,
				MaxAmount:      limit,
				Currency:       "TRY",
				IsActive:       true,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := db.Create(policy).Error; err != nil {
				log.Fatalf("failed to seed policy %s: %v", p.Category, err)
			}
			fmt.Printf("Seeded policy: %s <= %s TRY\n", p.Category, p.Limit)
		}

		fmt.Println("Seed data loaded. Default password for all accounts: password")
	},
}
