package main

import (
	"context"
	"log"
	"os"
	"time"

	"fixify-backend/internal/auth"
	"fixify-backend/internal/config"
	"fixify-backend/internal/db"
	"fixify-backend/internal/models"
	"fixify-backend/internal/settings"
	"fixify-backend/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedService struct {
	Name        string
	Description string
	Category    string
	BasePrice   int
}

type seedTechnician struct {
	Name            string
	Email           string
	Phone           string
	Specializations []string
	Location        string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	services := []seedService{
		{Name: "Refrigerator Repair", Description: "Cooling faults, compressor and thermostat replacement.", Category: "Kitchen", BasePrice: 1200},
		{Name: "Washing Machine Repair", Description: "Drum, motor and drainage diagnostics and repair.", Category: "Laundry", BasePrice: 900},
		{Name: "AC Service & Repair", Description: "Gas refill, coil cleaning and full servicing.", Category: "Cooling", BasePrice: 1500},
		{Name: "Microwave Repair", Description: "Magnetron, turntable and control panel repair.", Category: "Kitchen", BasePrice: 600},
		{Name: "Water Purifier Service", Description: "Filter and membrane replacement, full servicing.", Category: "Kitchen", BasePrice: 500},
		{Name: "Geyser Repair", Description: "Heating element and thermostat replacement.", Category: "Bathroom", BasePrice: 700},
		{Name: "TV Repair", Description: "Display, backlight and board level repair.", Category: "Living Room", BasePrice: 1000},
		{Name: "Dishwasher Repair", Description: "Spray arm, pump and inlet valve repair.", Category: "Kitchen", BasePrice: 1100},
	}

	for _, svc := range services {
		slug := utils.Slugify(svc.Name)
		filter := bson.M{"slug": slug}
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":         primitive.NewObjectID().Hex(),
				"name":        svc.Name,
				"description": svc.Description,
				"category":    svc.Category,
				"basePrice":   svc.BasePrice,
				"slug":        slug,
				"createdAt":   time.Now(),
			},
		}

		_, err := cols.Services.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			log.Fatalf("seed error for %s: %v", svc.Name, err)
		}
	}

	technicians := []seedTechnician{
		{Name: "Ravi Kumar", Email: "ravi.kumar@fixify.example", Phone: "+919800000001", Specializations: []string{"refrigerator-repair", "ac-service-and-repair"}, Location: "Koramangala"},
		{Name: "Suresh Patil", Email: "suresh.patil@fixify.example", Phone: "+919800000002", Specializations: []string{"washing-machine-repair", "dishwasher-repair"}, Location: "Indiranagar"},
		{Name: "Anita Desai", Email: "anita.desai@fixify.example", Phone: "+919800000003", Specializations: []string{"tv-repair", "microwave-repair"}, Location: "Whitefield"},
	}

	for _, tech := range technicians {
		filter := bson.M{"email": tech.Email}
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":               primitive.NewObjectID().Hex(),
				"name":              tech.Name,
				"email":             tech.Email,
				"phone":             tech.Phone,
				"specializations":   tech.Specializations,
				"location":          tech.Location,
				"status":            models.TechnicianStatusActive,
				"isAvailable":       true,
				"rating":            0,
				"totalRatings":      0,
				"completedBookings": 0,
				"createdAt":         time.Now(),
				"updatedAt":         time.Now(),
			},
		}
		_, err := cols.Technicians.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			log.Fatalf("seed error for technician %s: %v", tech.Email, err)
		}
	}

	if err := seedCommissionRate(ctx, cols); err != nil {
		log.Fatalf("seed commission rate: %v", err)
	}

	adminEmail := envOrDefault("ADMIN_EMAIL", "")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Println("seed admin: ADMIN_EMAIL or ADMIN_PASSWORD missing, skipping")
	} else if err := seedAdminUser(ctx, cols, adminEmail, adminPassword); err != nil {
		log.Fatalf("seed admin error: %v", err)
	}

	log.Println("seed completed")
}

// seedCommissionRate writes the default platform rate only when no
// rate has been configured yet.
func seedCommissionRate(ctx context.Context, cols *db.Collections) error {
	filter := bson.M{"_id": settings.CommissionKey}
	update := bson.M{
		"$setOnInsert": bson.M{
			"value":     float64(30),
			"updatedAt": time.Now(),
			"updatedBy": "seed",
		},
	}
	_, err := cols.Settings.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func seedAdminUser(ctx context.Context, cols *db.Collections, email, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now()
	filter := bson.M{"email": email}
	update := bson.M{
		"$set": bson.M{
			"passwordHash": hash,
			"role":         models.RoleAdmin,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID().Hex(),
			"name":      "Admin",
			"email":     email,
			"createdAt": now,
		},
	}
	_, err = cols.Users.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
