package database

import (
	"fmt"
	"log"

	config "github.com/kamaub/marketplace_api/configs"
	"github.com/kamaub/marketplace_api/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() {
	var err error
	dsn := config.Config("DATABASE_URL")

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Fatalf("🔥 Failed to connect to database: %v", err)
	}

	fmt.Println("✅ Database connected successfully")
}

// changeFeedSQL installs the row-change triggers the realtime feed
// listens to. Payload shape matches backend/postgres.Feed.
const changeFeedSQL = `
CREATE OR REPLACE FUNCTION notify_row_change() RETURNS trigger AS $$
BEGIN
  PERFORM pg_notify(
    'row_changes',
    json_build_object(
      'table', TG_TABLE_NAME,
      'kind', lower(TG_OP),
      'row', row_to_json(NEW)
    )::text
  );
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS messages_row_change ON messages;
CREATE TRIGGER messages_row_change
  AFTER INSERT OR UPDATE ON messages
  FOR EACH ROW EXECUTE FUNCTION notify_row_change();

DROP TRIGGER IF EXISTS profiles_row_change ON profiles;
CREATE TRIGGER profiles_row_change
  AFTER UPDATE ON profiles
  FOR EACH ROW EXECUTE FUNCTION notify_row_change();
`

func Migrate() {
	err := DB.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Message{},
		&models.Product{},
		&models.Rating{},
		&models.ArchivedConversation{},
	)
	if err != nil {
		log.Fatalf("🔥 Failed to migrate database: %v", err)
	}

	if err := DB.Exec(changeFeedSQL).Error; err != nil {
		log.Fatalf("🔥 Failed to install change-feed triggers: %v", err)
	}
	fmt.Println("✅ Database migration successful")
}

func SeedAdmin() {
	adminEmail := config.Config("ADMIN_EMAIL")
	adminPassword := config.Config("ADMIN_PASSWORD")

	var count int64
	err := DB.Model(&models.User{}).Where("email = ?", adminEmail).Count(&count).Error
	if err != nil {
		log.Fatalf("🔥 Failed to check for admin user: %v", err)
		return
	}

	if count > 0 {
		log.Println("Admin user already exists.")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("🔥 Failed to hash admin password: %v", err)
		return
	}

	adminUser := models.User{
		Email:    adminEmail,
		Password: string(hashedPassword),
	}
	if err := DB.Create(&adminUser).Error; err != nil {
		log.Fatalf("🔥 Failed to seed admin user: %v", err)
		return
	}

	badge := "head_admin"
	adminProfile := models.Profile{
		ID:       adminUser.ID,
		Username: config.Config("ADMIN_USERNAME"),
		Badge:    &badge,
		IsAdmin:  true,
	}
	if err := DB.Create(&adminProfile).Error; err != nil {
		log.Fatalf("🔥 Failed to seed admin profile: %v", err)
		return
	}

	log.Println("✅ Admin user seeded successfully")
}
