//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/transitops/fleetdesk/internal/config"
	"github.com/transitops/fleetdesk/internal/database"
	"github.com/transitops/fleetdesk/internal/models"
	"github.com/transitops/fleetdesk/internal/repository"
)

var (
	firstNames = []string{"James", "Mary", "Peter", "Grace", "Daniel", "Ann", "Brian", "Lucy", "Kevin", "Faith",
		"Samuel", "Rose", "David", "Joy", "Eric", "Nancy", "Paul", "Esther", "Mark", "Helen"}
	lastNames = []string{"Mwangi", "Otieno", "Kamau", "Wanjiru", "Smith", "Brown", "Omondi", "Njeri", "Walker", "Kent"}
	streets   = []string{"Harbor Rd", "Station Ave", "Market St", "Airport Way", "Hill Ln", "Garden Dr"}
)

func main() {
	rand.Seed(time.Now().UnixNano())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	vehicleRepo := repository.NewVehicleRepository(db.DB)
	driverRepo := repository.NewDriverRepository(db.DB)
	contractorRepo := repository.NewContractorRepository(db.DB)
	bookingRepo := repository.NewBookingRepository(db.DB)

	// Create vehicles
	log.Println("Creating 20 vehicles...")
	seatOptions := []int{4, 7, 14, 25, 49}
	vehicleIDs := make([]string, 0)
	for i := 0; i < 20; i++ {
		vehicle := &models.Vehicle{
			Registration: fmt.Sprintf("KBX %03d%s", rand.Intn(999), string(rune('A'+rand.Intn(26)))),
			Seats:        seatOptions[rand.Intn(len(seatOptions))],
			Priority:     rand.Intn(10),
			MileageKm:    rand.Intn(300000),
		}
		if err := vehicleRepo.Create(ctx, vehicle); err != nil {
			log.Printf("Failed to create vehicle: %v", err)
			continue
		}
		vehicleIDs = append(vehicleIDs, vehicle.ID)
	}
	log.Printf("Created %d vehicles", len(vehicleIDs))

	// Create drivers
	log.Println("Creating 30 drivers...")
	classes := []string{models.LicenseClassB, models.LicenseClassC, models.LicenseClassD, models.LicenseClassD1}
	driverIDs := make([]string, 0)
	for i := 0; i < 30; i++ {
		driver := &models.Driver{
			Name:          fmt.Sprintf("%s %s", firstNames[rand.Intn(len(firstNames))], lastNames[rand.Intn(len(lastNames))]),
			Phone:         fmt.Sprintf("07%08d", rand.Intn(100000000)),
			LicenseNumber: fmt.Sprintf("DL%07d", rand.Intn(10000000)),
			LicenseClass:  classes[rand.Intn(len(classes))],
		}
		if err := driverRepo.Create(ctx, driver); err != nil {
			log.Printf("Failed to create driver: %v", err)
			continue
		}
		driverIDs = append(driverIDs, driver.ID)
	}
	log.Printf("Created %d drivers", len(driverIDs))

	// Create contractor vehicles
	log.Println("Creating 10 contractor vehicles...")
	contractorIDs := make([]string, 0)
	for i := 0; i < 10; i++ {
		ctv := &models.ContractorVehicle{
			OwnerName:    fmt.Sprintf("%s %s", firstNames[rand.Intn(len(firstNames))], lastNames[rand.Intn(len(lastNames))]),
			OwnerPhone:   fmt.Sprintf("07%08d", rand.Intn(100000000)),
			Registration: fmt.Sprintf("KCA %03d%s", rand.Intn(999), string(rune('A'+rand.Intn(26)))),
			Seats:        seatOptions[rand.Intn(len(seatOptions))],
		}
		if err := contractorRepo.Create(ctx, ctv); err != nil {
			log.Printf("Failed to create contractor vehicle: %v", err)
			continue
		}
		contractorIDs = append(contractorIDs, ctv.ID)
	}
	log.Printf("Created %d contractor vehicles", len(contractorIDs))

	// Create pending bookings
	log.Println("Creating 15 pending bookings...")
	bookingIDs := make([]string, 0)
	for i := 0; i < 15; i++ {
		booking := &models.Booking{
			PickupAddress:  fmt.Sprintf("%d %s", rand.Intn(200), streets[rand.Intn(len(streets))]),
			DropoffAddress: fmt.Sprintf("%d %s", rand.Intn(200), streets[rand.Intn(len(streets))]),
			PickupTime:     time.Now().Add(time.Duration(1+rand.Intn(72)) * time.Hour),
			Passengers:     1 + rand.Intn(30),
			Status:         models.BookingStatusPending,
		}
		if err := bookingRepo.Create(ctx, booking); err != nil {
			log.Printf("Failed to create booking: %v", err)
			continue
		}
		bookingIDs = append(bookingIDs, booking.ID)
	}
	log.Printf("Created %d bookings", len(bookingIDs))

	// Summary
	log.Println("\n=== Seed Data Summary ===")
	log.Printf("Vehicles: %d, Drivers: %d, Contractors: %d, Bookings: %d",
		len(vehicleIDs), len(driverIDs), len(contractorIDs), len(bookingIDs))
	if len(bookingIDs) > 0 {
		log.Println("Sample Booking ID:", bookingIDs[0])
	}
}
