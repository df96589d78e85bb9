package db

import (
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InitialEula is the text of EULA version 1.
const InitialEula = `END USER LICENSE AGREEMENT (EULA)

By accessing or using CMU TalentHub, you acknowledge that you have read, understood,
and agree to be bound by this End User License Agreement and our Privacy Policy.

1. There is no tolerance for objectionable content or abusive users.
2. You may report content or users that violate these terms; reports are reviewed within 24 hours.
3. You may block any user; blocked users cannot view your profile or message you.
4. Violations of this EULA may result in content removal and suspension of your account.`

// seedTables lists tables in child-to-parent order so deletes never trip a foreign key.
var seedTables = []string{
	"talent_reactions", "talents",
	"user_eula_acceptances", "eula_versions",
	"content_reports", "blocked_users",
	"messages", "conversation_participants", "conversations",
	"student_profiles", "business_profiles", "users",
}

// SeedTestData resets the database and populates it with demo data.
//
// Behavior:
//  1. Clears every table managed by Migrate.
//  2. Creates 1 admin, 6 students and 3 businesses (password "password").
//  3. Publishes EULA version 1 as the active version.
//  4. Gives every student two talents for the feed.
//
// Returns the seeded users so callers can print development tokens.
func SeedTestData(db *gorm.DB) ([]User, error) {
	for _, table := range seedTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	users := []User{{
		Email:         "admin@talenthub.test",
		PasswordHash:  string(hash),
		Role:          RoleAdmin,
		Status:        UserActive,
		AgreedToTerms: true,
	}}
	for i := 1; i <= 6; i++ {
		users = append(users, User{
			Email:        fmt.Sprintf("student%d@talenthub.test", i),
			PasswordHash: string(hash),
			Role:         RoleStudent,
			Status:       UserActive,
			Student: &StudentProfile{
				FirstName: fmt.Sprintf("Student%d", i),
				LastName:  "Demo",
				Major:     []string{"Computer Science", "Design", "Business"}[i%3],
			},
		})
	}
	for i := 1; i <= 3; i++ {
		users = append(users, User{
			Email:        fmt.Sprintf("business%d@talenthub.test", i),
			PasswordHash: string(hash),
			Role:         RoleBusiness,
			Status:       UserActive,
			Business: &BusinessProfile{
				BusinessName: fmt.Sprintf("Business %d LLC", i),
				Industry:     "Technology",
			},
		})
	}
	if err := db.Create(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	log.Printf("Seeded %d users.", len(users))

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&EulaVersion{Version: 1, Content: InitialEula, Active: true}).Error; err != nil {
		return nil, fmt.Errorf("failed to seed eula: %w", err)
	}

	var talents []Talent
	for _, u := range users {
		if u.Role != RoleStudent {
			continue
		}
		talents = append(talents,
			Talent{OwnerUserID: u.ID, Title: u.Student.FirstName + " portfolio", Category: "design"},
			Talent{OwnerUserID: u.ID, Title: u.Student.FirstName + " side project", Category: "software"},
		)
	}
	if err := db.Create(&talents).Error; err != nil {
		return nil, fmt.Errorf("failed to seed talents: %w", err)
	}
	log.Printf("Seeded %d talents.", len(talents))

	return users, nil
}

// SeedMinimalTestData inserts a small deterministic dataset for tests:
// users u1,u2,u3 (students), u4 (business), admin (admin) and active EULA v1.
func SeedMinimalTestData(db *gorm.DB) error {
	users := []User{
		{ID: "u1", Email: "u1@test.com", PasswordHash: "x", Role: RoleStudent, Student: &StudentProfile{FirstName: "Ada", LastName: "One"}},
		{ID: "u2", Email: "u2@test.com", PasswordHash: "x", Role: RoleStudent, Student: &StudentProfile{FirstName: "Bo", LastName: "Two"}},
		{ID: "u3", Email: "u3@test.com", PasswordHash: "x", Role: RoleStudent, Student: &StudentProfile{FirstName: "Cy", LastName: "Three"}},
		{ID: "u4", Email: "u4@test.com", PasswordHash: "x", Role: RoleBusiness, Business: &BusinessProfile{BusinessName: "Four Inc"}},
		{ID: "admin", Email: "admin@test.com", PasswordHash: "x", Role: RoleAdmin, AgreedToTerms: true},
	}
	for i := range users {
		users[i].Status = UserActive
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	return db.Create(&EulaVersion{Version: 1, Content: InitialEula, Active: true}).Error
}
