// Command seed loads the baseline data set from a YAML fixture: the 14-row
// deadline table, categories, items, users and the settings singleton.
// Existing rows are left alone, so re-running against a live database is
// safe.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/daway0/pors/internal/auth"
	"github.com/daway0/pors/internal/config"
	"github.com/daway0/pors/internal/enum"
)

type fixture struct {
	// DeadlineDefault fills every (weekday, meal type) pair not listed
	// explicitly under Deadlines.
	DeadlineDefault deadlineRow   `yaml:"deadline_default"`
	Deadlines       []deadlineRow `yaml:"deadlines"`

	Categories []categoryRow `yaml:"categories"`
	Items      []itemRow     `yaml:"items"`
	Users      []userRow     `yaml:"users"`

	// Subsidy opens the current (open-ended) subsidy range, if set.
	Subsidy *subsidyRow `yaml:"subsidy"`
}

type deadlineRow struct {
	Weekday  int    `yaml:"weekday"`
	MealType string `yaml:"meal_type"`
	Days     int    `yaml:"days"`
	Hour     int    `yaml:"hour"`
}

type categoryRow struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type itemRow struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	MealType    string `yaml:"meal_type"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
}

type userRow struct {
	Personnel string `yaml:"personnel"`
	FullName  string `yaml:"full_name"`
	Email     string `yaml:"email"`
	IsAdmin   bool   `yaml:"is_admin"`
	// Token is the opaque SSO token; only its hash is stored.
	Token string `yaml:"token"`
}

type subsidyRow struct {
	FromDate string `yaml:"from_date"`
	Amount   string `yaml:"amount"`
}

func main() {
	path := flag.String("fixture", "seed.yaml", "Path to the YAML fixture")
	flag.Parse()

	fx, err := loadFixture(*path)
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}
	if err := validateFixture(fx); err != nil {
		log.Fatalf("Invalid fixture: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// One transaction: either the whole fixture lands or none of it.
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := seedDeadlines(ctx, tx, fx); err != nil {
		log.Fatalf("Failed to seed deadlines: %v", err)
	}
	if err := seedCategoriesAndItems(ctx, tx, fx); err != nil {
		log.Fatalf("Failed to seed items: %v", err)
	}
	if err := seedUsers(ctx, tx, fx.Users); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}
	if err := seedSettings(ctx, tx); err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}
	if fx.Subsidy != nil {
		if err := seedSubsidy(ctx, tx, *fx.Subsidy); err != nil {
			log.Fatalf("Failed to seed subsidy: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Seed completed successfully")
}

func loadFixture(path string) (*fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fx, nil
}

func validateFixture(fx *fixture) error {
	if fx.DeadlineDefault.Hour < 0 || fx.DeadlineDefault.Hour > 24 || fx.DeadlineDefault.Days < 0 {
		return fmt.Errorf("deadline_default out of range: %+v", fx.DeadlineDefault)
	}
	for _, d := range fx.Deadlines {
		if d.Weekday < 0 || d.Weekday > 6 || !enum.IsMealType(d.MealType) {
			return fmt.Errorf("deadline row out of range: %+v", d)
		}
		if d.Days < 0 || d.Hour < 0 || d.Hour > 24 {
			return fmt.Errorf("deadline row out of range: %+v", d)
		}
	}
	for _, c := range fx.Categories {
		if c.Kind != enum.CategoryKindPrimary && c.Kind != enum.CategoryKindSide {
			return fmt.Errorf("category %q has unknown kind %q", c.Name, c.Kind)
		}
	}
	for _, it := range fx.Items {
		if !enum.IsMealType(it.MealType) {
			return fmt.Errorf("item %q has unknown meal type %q", it.Name, it.MealType)
		}
	}
	for _, u := range fx.Users {
		if u.Personnel == "" || u.Token == "" {
			return fmt.Errorf("user %+v needs personnel and token", u)
		}
	}
	return nil
}

// seedDeadlines inserts the full 14-row table, taking explicit rows from the
// fixture and the default pair everywhere else.
func seedDeadlines(ctx context.Context, tx pgx.Tx, fx *fixture) error {
	explicit := make(map[string]deadlineRow, len(fx.Deadlines))
	for _, d := range fx.Deadlines {
		explicit[fmt.Sprintf("%d/%s", d.Weekday, d.MealType)] = d
	}

	for weekday := 0; weekday <= 6; weekday++ {
		for _, mealType := range enum.MealTypes {
			row := deadlineRow{
				Weekday:  weekday,
				MealType: mealType,
				Days:     fx.DeadlineDefault.Days,
				Hour:     fx.DeadlineDefault.Hour,
			}
			if d, ok := explicit[fmt.Sprintf("%d/%s", weekday, mealType)]; ok {
				row = d
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO deadlines (weekday, meal_type, days, hour)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (weekday, meal_type) DO NOTHING`,
				row.Weekday, row.MealType, row.Days, row.Hour)
			if err != nil {
				return fmt.Errorf("insert deadline %d/%s: %w", row.Weekday, row.MealType, err)
			}
		}
	}
	log.Println("Seeded deadline table")
	return nil
}

func seedCategoriesAndItems(ctx context.Context, tx pgx.Tx, fx *fixture) error {
	categoryIDs := make(map[string]int32, len(fx.Categories))
	for _, c := range fx.Categories {
		var id int32
		err := tx.QueryRow(ctx, `
			INSERT INTO categories (name, kind)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET kind = EXCLUDED.kind
			RETURNING id`,
			c.Name, c.Kind).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert category %q: %w", c.Name, err)
		}
		categoryIDs[c.Name] = id
	}

	for _, it := range fx.Items {
		categoryID, ok := categoryIDs[it.Category]
		if !ok {
			return fmt.Errorf("item %q references unknown category %q", it.Name, it.Category)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO items (name, category_id, meal_type, description, current_price, is_active)
			VALUES ($1, $2, $3, $4, $5, true)
			ON CONFLICT (name, meal_type) DO NOTHING`,
			it.Name, categoryID, it.MealType, it.Description, it.Price)
		if err != nil {
			return fmt.Errorf("insert item %q: %w", it.Name, err)
		}
	}
	log.Printf("Seeded %d categories, %d items", len(fx.Categories), len(fx.Items))
	return nil
}

func seedUsers(ctx context.Context, tx pgx.Tx, users []userRow) error {
	for _, u := range users {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (personnel, full_name, email, is_admin, is_active, token_hash)
			VALUES ($1, $2, $3, $4, true, $5)
			ON CONFLICT (personnel) DO NOTHING`,
			u.Personnel, u.FullName, u.Email, u.IsAdmin, auth.HashPersonnelToken(u.Token))
		if err != nil {
			return fmt.Errorf("insert user %s: %w", u.Personnel, err)
		}
	}
	log.Printf("Seeded %d users", len(users))
	return nil
}

// seedSettings ensures the settings singleton exists, open for everyone with
// reminders off.
func seedSettings(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO system_settings (id, open_for_personnel, open_for_admins, brf_reminder, lnc_reminder, remind_before_minutes)
		VALUES (1, true, true, false, false, 60)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("insert settings: %w", err)
	}
	return nil
}

func seedSubsidy(ctx context.Context, tx pgx.Tx, s subsidyRow) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO subsidies (from_date, until_date, amount)
		VALUES ($1, NULL, $2)
		ON CONFLICT (from_date) DO NOTHING`,
		s.FromDate, s.Amount)
	if err != nil {
		return fmt.Errorf("insert subsidy: %w", err)
	}
	log.Printf("Seeded subsidy from %s", s.FromDate)
	return nil
}
