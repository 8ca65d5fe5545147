package database

import "context"

// Building/floor rows live in the HR schema and are read-only here.

type Building struct {
	Code string
	Name string
}

type Floor struct {
	Code         string
	BuildingCode string
	Name         string
}

func (q *Queries) GetBuilding(ctx context.Context, code string) (Building, error) {
	var b Building
	err := q.db.QueryRow(ctx, `
		SELECT code, name FROM hr_buildings WHERE code = $1`,
		code).Scan(&b.Code, &b.Name)
	return b, err
}

type FloorKey struct {
	BuildingCode string
	FloorCode    string
}

func (q *Queries) GetFloor(ctx context.Context, arg FloorKey) (Floor, error) {
	var f Floor
	err := q.db.QueryRow(ctx, `
		SELECT code, building_code, name
		FROM hr_floors
		WHERE building_code = $1 AND code = $2`,
		arg.BuildingCode, arg.FloorCode).Scan(&f.Code, &f.BuildingCode, &f.Name)
	return f, err
}

type BuildingWithFloorsRow struct {
	BuildingCode string
	BuildingName string
	FloorCode    string
	FloorName    string
}

func (q *Queries) ListBuildingsWithFloors(ctx context.Context) ([]BuildingWithFloorsRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT b.code, b.name, f.code, f.name
		FROM hr_buildings b
		JOIN hr_floors f ON f.building_code = b.code
		ORDER BY b.name, f.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BuildingWithFloorsRow
	for rows.Next() {
		var r BuildingWithFloorsRow
		if err := rows.Scan(&r.BuildingCode, &r.BuildingName, &r.FloorCode, &r.FloorName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
