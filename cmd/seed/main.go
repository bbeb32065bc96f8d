// Command seed resets the database and loads development data: staff
// accounts, the floor plan, the menu and a pair of demo diners.
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"browntable/internal/auth"
	"browntable/internal/config"
	"browntable/internal/models"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()
	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	log.Println("Dropping tables...")
	dropTables(ctx, db)

	log.Println("Creating tables...")
	createTables(ctx, db)

	log.Println("Seeding data...")
	seedAdmins(ctx, db)
	seedTables(ctx, db)
	seedMenu(ctx, db)
	seedWeather(ctx, db)
	seedUsers(ctx, db)

	log.Println("Done.")
}

func dropTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{
		(*models.TableHistory)(nil), (*models.Table)(nil),
		(*models.OrderItem)(nil), (*models.Order)(nil),
		(*models.PendingInvite)(nil), (*models.GroupMember)(nil), (*models.Group)(nil),
		(*models.WeatherHistory)(nil), (*models.Weather)(nil),
		(*models.MenuItem)(nil), (*models.Admin)(nil), (*models.User)(nil),
	}
	for _, m := range tables {
		_, _ = db.NewDropTable().Model(m).IfExists().Cascade().Exec(ctx)
	}
	// reset migration bookkeeping so the server re-applies the schema
	_, _ = db.ExecContext(ctx, "DROP TABLE IF EXISTS schema_migrations")
}

func createTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{
		(*models.User)(nil), (*models.Admin)(nil),
		(*models.Group)(nil), (*models.GroupMember)(nil), (*models.PendingInvite)(nil),
		(*models.Order)(nil), (*models.OrderItem)(nil),
		(*models.Table)(nil), (*models.TableHistory)(nil),
		(*models.Weather)(nil), (*models.WeatherHistory)(nil),
		(*models.MenuItem)(nil),
	}
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("Failed to create table for %T: %v", m, err)
		}
	}
}

func seedAdmins(ctx context.Context, db *bun.DB) {
	adminHash, err := auth.HashPassword("admin123")
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}
	superHash, err := auth.HashPassword("super123")
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	admin := models.Admin{
		ID:           uuid.NewString(),
		Username:     "admin",
		Email:        "admin@brown-table.com",
		Name:         "Restaurant Admin",
		PasswordHash: adminHash,
		Role:         models.AdminRoleAdmin,
		IsActive:     true,
		Department:   "operations",
		CreatedAt:    time.Now(),
	}
	admin.SetPermissions([]string{"manage_reservations", "manage_orders", "manage_tables"})

	super := models.Admin{
		ID:           uuid.NewString(),
		Username:     "superadmin",
		Email:        "super@brown-table.com",
		Name:         "Super Admin",
		PasswordHash: superHash,
		Role:         models.AdminRoleSuperAdmin,
		IsActive:     true,
		Department:   "management",
		CreatedAt:    time.Now(),
	}
	super.SetPermissions(models.AdminPermissions)

	admins := []models.Admin{admin, super}
	if _, err := db.NewInsert().Model(&admins).Exec(ctx); err != nil {
		log.Fatalf("Failed to seed admins: %v", err)
	}
}

func seedTables(ctx context.Context, db *bun.DB) {
	specs := []struct {
		number   int
		capacity int
		location string
		section  string
	}{
		{1, 2, "indoor", "window"},
		{2, 2, "indoor", "window"},
		{3, 4, "indoor", "main"},
		{4, 4, "indoor", "main"},
		{5, 4, "indoor", "main"},
		{6, 6, "indoor", "main"},
		{7, 6, "outdoor", "patio"},
		{8, 8, "outdoor", "patio"},
		{9, 8, "indoor", "private"},
		{10, 12, "indoor", "private"},
	}

	rows := make([]models.Table, 0, len(specs))
	for _, spec := range specs {
		rows = append(rows, models.Table{
			ID:        uuid.NewString(),
			Number:    spec.number,
			Capacity:  spec.capacity,
			Status:    models.TableStatusFree,
			Location:  spec.location,
			Section:   spec.section,
			IsActive:  true,
			CreatedAt: time.Now(),
		})
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		log.Fatalf("Failed to seed tables: %v", err)
	}
}

func seedMenu(ctx context.Context, db *bun.DB) {
	items := []models.MenuItem{
		{Name: "Paneer Tikka", Price: 280, ItemType: models.ItemTypeVeg, Category: "tandoor", Section: "Starters", PreparationTime: 20},
		{Name: "Chicken 65", Price: 320, ItemType: models.ItemTypeNonVeg, Category: "fried", Section: "Starters", PreparationTime: 15},
		{Name: "Veg Spring Rolls", Price: 220, ItemType: models.ItemTypeVeg, Category: "fried", Section: "Starters", PreparationTime: 15},
		{Name: "Butter Chicken", Price: 450, ItemType: models.ItemTypeNonVeg, Category: "curry", Section: "Mains", PreparationTime: 30},
		{Name: "Paneer Butter Masala", Price: 380, ItemType: models.ItemTypeVeg, Category: "curry", Section: "Mains", PreparationTime: 25},
		{Name: "Dal Makhani", Price: 320, ItemType: models.ItemTypeVeg, Category: "curry", Section: "Mains", PreparationTime: 25},
		{Name: "Chicken Biryani", Price: 420, ItemType: models.ItemTypeNonVeg, Category: "rice", Section: "Mains", PreparationTime: 35},
		{Name: "Veg Biryani", Price: 340, ItemType: models.ItemTypeVeg, Category: "rice", Section: "Mains", PreparationTime: 30},
		{Name: "Butter Naan", Price: 60, ItemType: models.ItemTypeVeg, Category: "bread", Section: "Breads", PreparationTime: 10},
		{Name: "Garlic Naan", Price: 80, ItemType: models.ItemTypeVeg, Category: "bread", Section: "Breads", PreparationTime: 10},
		{Name: "Gulab Jamun", Price: 140, ItemType: models.ItemTypeVeg, Category: "sweet", Section: "Desserts", PreparationTime: 5},
		{Name: "Rasmalai", Price: 160, ItemType: models.ItemTypeVeg, Category: "sweet", Section: "Desserts", PreparationTime: 5},
		{Name: "Masala Chai", Price: 60, ItemType: models.ItemTypeVeg, Category: "hot", Section: "Drinks", PreparationTime: 5},
		{Name: "Fresh Lime Soda", Price: 90, ItemType: models.ItemTypeVeg, Category: "cold", Section: "Drinks", PreparationTime: 5},
		{Name: "Mango Lassi", Price: 120, ItemType: models.ItemTypeVeg, Category: "cold", Section: "Drinks", PreparationTime: 5},
	}
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].IsAvailable = true
	}
	if _, err := db.NewInsert().Model(&items).Exec(ctx); err != nil {
		log.Fatalf("Failed to seed menu: %v", err)
	}
}

func seedWeather(ctx context.Context, db *bun.DB) {
	row := models.Weather{Current: models.WeatherSunny, UpdatedAt: time.Now()}
	if _, err := db.NewInsert().Model(&row).Exec(ctx); err != nil {
		log.Fatalf("Failed to seed weather: %v", err)
	}
}

func seedUsers(ctx context.Context, db *bun.DB) {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		log.Fatalf("Failed to hash user password: %v", err)
	}
	users := []models.User{
		{
			ID: uuid.NewString(), Name: "Alice", Phone: "9876543210",
			PasswordHash: hash, Avatar: "A", Color: "bg-pink-500",
			IsActive: true, CreatedAt: time.Now(),
		},
		{
			ID: uuid.NewString(), Name: "Bob", Phone: "9876543211",
			PasswordHash: hash, Avatar: "B", Color: "bg-blue-500",
			IsActive: true, CreatedAt: time.Now(),
		},
	}
	if _, err := db.NewInsert().Model(&users).Exec(ctx); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}
}
