package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/seanokelly/analogmarket/internal/adapters/database"
	"github.com/seanokelly/analogmarket/internal/adapters/search"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/postgres"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/typesense"
	"github.com/seanokelly/analogmarket/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	var indexRepo *search.ProductIndexAdapter
	if err == nil {
		if err := tsClient.InitSchema(ctx); err != nil {
			log.Printf("Failed to init Typesense schema: %v", err)
		} else {
			indexRepo = search.NewProductIndexAdapter(tsClient)
		}
	}

	productRepo := database.NewProductAdapter(pgClient)

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE products RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	now := time.Now()

	// A mix of well-described listings and sparse ones, so the
	// rationalization pipeline has real work to do on a fresh database.
	products := []entities.Product{
		{
			ID:          uuid.New().String(),
			Name:        "Nikon F3 HP 35mm SLR",
			Description: "Professional 35mm SLR body with the high-eyepoint finder. Meter confirmed accurate.",
			Images:      []string{"https://img.analogmarket.test/nikon-f3-front.jpg", "https://img.analogmarket.test/nikon-f3-top.jpg"},
			Metadata: map[string]string{
				entities.MetaBrand:     "Nikon",
				entities.MetaYear:      "1982",
				entities.MetaCategory:  entities.CategoryCamera,
				entities.MetaCondition: entities.ConditionExcellent,
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          uuid.New().String(),
			Name:        "Canon AE-1 Program",
			Description: "Classic student camera. New light seals, shutter squeak fixed.",
			Images:      []string{"https://img.analogmarket.test/canon-ae1p.jpg"},
			Metadata: map[string]string{
				entities.MetaBrand:    "Canon",
				entities.MetaCategory: entities.CategoryCamera,
				entities.MetaYear:     "unknown",
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          uuid.New().String(),
			Name:        "Rolleiflex 2.8F TLR",
			Description: "Medium format twin lens reflex with Planar 80mm f/2.8.",
			Images:      []string{"https://img.analogmarket.test/rolleiflex-28f.jpg"},
			Metadata:    map[string]string{},
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          uuid.New().String(),
			Name:        "Sekonic L-308X Light Meter",
			Description: "Handheld incident and reflected light meter. Barely used.",
			Images:      []string{"https://img.analogmarket.test/sekonic-l308x.jpg"},
			Metadata: map[string]string{
				entities.MetaBrand:       "Sekonic",
				entities.MetaCategory:    entities.CategoryAccessory,
				entities.MetaSubcategory: "light meter",
				entities.MetaCondition:   entities.ConditionExcellent,
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          uuid.New().String(),
			Name:        "Manfrotto 190X Tripod",
			Description: "Aluminium tripod, sticky leg lock on one leg, otherwise solid.",
			Images:      []string{"https://img.analogmarket.test/manfrotto-190x.jpg"},
			Metadata: map[string]string{
				entities.MetaBrand: "n/a",
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          uuid.New().String(),
			Name:        "Olympus OM-1 MD",
			Description: "Compact mechanical SLR. Prism has light desilvering at the edge.",
			Images:      []string{"https://img.analogmarket.test/olympus-om1.jpg"},
			Metadata: map[string]string{
				entities.MetaBrand:     "Olympus",
				entities.MetaYear:      "1974",
				entities.MetaCategory:  entities.CategoryCamera,
				entities.MetaCondition: entities.ConditionFair,
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          uuid.New().String(),
			Name:        "Leica M6 Classic",
			Description: "",
			Images:      []string{"https://img.analogmarket.test/leica-m6.jpg"},
			Metadata: map[string]string{
				entities.MetaBrand: "Leica",
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          uuid.New().String(),
			Name:        "Domke F-2 Camera Bag",
			Description: "Canvas shoulder bag with original inserts.",
			Images:      []string{"https://img.analogmarket.test/domke-f2.jpg"},
			Metadata: map[string]string{
				entities.MetaCategory: entities.CategoryAccessory,
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	seeded := 0
	for i := range products {
		p := products[i]
		if err := productRepo.Create(ctx, &p); err != nil {
			log.Printf("Failed to create product %s: %v", p.Name, err)
			continue
		}
		seeded++

		if indexRepo != nil {
			if err := indexRepo.IndexProduct(ctx, &p); err != nil {
				log.Printf("Failed to index product %s: %v", p.Name, err)
			}
		}
	}

	log.Printf("Seeding completed, %d products created", seeded)
}
