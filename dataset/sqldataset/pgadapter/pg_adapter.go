/*
Package pgadapter provides an implementation of the
Adapter interface in the sqldataset package that works
over a PostgreSQL database.
*/
package pgadapter

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jayelm/decisiontrees/dataset/sqldataset"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"
)

const (
	valueTableCreateStmt = `CREATE TABLE IF NOT EXISTS featureValues (
		id SERIAL PRIMARY KEY,
		value TEXT UNIQUE NOT NULL)`

	// MaxValueInsertionsPerStatement is the maximum number of
	// feature values that are allowed to be added with a single
	// insert command with the AddValues method of the adapter.
	// Trying to add more will result in making more insertion commands
	MaxValueInsertionsPerStatement = 10

	// MaxSampleInsertionsPerStatement is the maximum number
	// of samples that are allowed to be added with a single
	// insert command with the AddSamples method of the adapter.
	// Trying to add more will result in making more insertion commands
	MaxSampleInsertionsPerStatement = 10
)

type adapter struct {
	db *sql.DB
}

/*
New takes a PostgreSQL database connection URL and returns
an Adapter that works on the database or an error if it fails to connect to it.
*/
func New(url string) (sqldataset.Adapter, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	return &adapter{db}, nil
}

func (a *adapter) ColumnName(featureName string) (string, error) {
	if featureName == "id" {
		return "", fmt.Errorf(`'%s' is reserved and cannot be used as feature name`, featureName)
	}
	if strings.ContainsAny(featureName, `"`) {
		return "", fmt.Errorf(`feature name '%s' contains invalid character '"'`, featureName)
	}
	return featureName, nil
}

func (a *adapter) CreateValuesTable(ctx context.Context) error {
	createStmt, err := a.db.PrepareContext(ctx, valueTableCreateStmt)
	if err != nil {
		return fmt.Errorf("preparing featureValues creation statement: %v", err)
	}
	defer createStmt.Close()
	_, err = createStmt.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("running featureValues creation statement: %v", err)
	}
	return nil
}

func (a *adapter) CreateSampleTable(ctx context.Context, featureColumns []string) error {
	var createStmtBuf bytes.Buffer
	createStmtBuf.WriteString("CREATE TABLE IF NOT EXISTS samples(")
	for _, c := range featureColumns {
		createStmtBuf.WriteString(fmt.Sprintf(`"%s" INTEGER NOT NULL REFERENCES featureValues(id), `, c))
	}
	createStmtBuf.WriteString(`"id" SERIAL PRIMARY KEY)`)
	createStmt, err := a.db.PrepareContext(ctx, createStmtBuf.String())
	if err != nil {
		return fmt.Errorf("preparing samples creation statement: %v", err)
	}
	defer createStmt.Close()
	_, err = createStmt.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("ensuring samples table exists: %v", err)
	}
	return nil
}

func (a *adapter) AddValues(ctx context.Context, values []string) (int, error) {
	var (
		chunkStart       = 0
		chunkEnd         = MaxValueInsertionsPerStatement
		insertStmtBuffer bytes.Buffer
	)
	if len(values) == 0 {
		return 0, nil
	}
	if len(values) > MaxValueInsertionsPerStatement {
		insertStmtBuffer.WriteString("INSERT INTO featureValues (value) VALUES ($1)")
		for i := 1; i < MaxValueInsertionsPerStatement; i++ {
			insertStmtBuffer.WriteString(fmt.Sprintf(", ($%d)", i+1))
		}
		insertStmt, err := a.db.PrepareContext(ctx, insertStmtBuffer.String())
		if err != nil {
			return 0, fmt.Errorf("preparing insert command for %d values: %v", MaxValueInsertionsPerStatement, err)
		}
		for c := 0; c < len(values)/MaxValueInsertionsPerStatement; c++ {
			iv := make([]interface{}, 0, MaxValueInsertionsPerStatement)
			for _, v := range values[chunkStart:chunkEnd] {
				iv = append(iv, v)
			}
			_, err = insertStmt.ExecContext(ctx, iv...)
			if err != nil {
				return chunkStart, fmt.Errorf("inserting the %dth %d values: %v", c+1, MaxValueInsertionsPerStatement, err)
			}
			chunkStart += MaxValueInsertionsPerStatement
			chunkEnd += MaxValueInsertionsPerStatement
		}
		err = insertStmt.Close()
		if err != nil {
			return chunkStart, fmt.Errorf("closing insert command for %d values: %v", MaxValueInsertionsPerStatement, err)
		}
	}
	chunkEnd = len(values)
	lastValues := values[chunkStart:chunkEnd]
	if len(lastValues) > 0 {
		insertStmtBuffer = bytes.Buffer{}
		insertStmtBuffer.WriteString("INSERT INTO featureValues (value) VALUES ($1)")
		for i := 1; i < len(lastValues); i++ {
			insertStmtBuffer.WriteString(fmt.Sprintf(", ($%d)", i+1))
		}
		insertStmt, err := a.db.PrepareContext(ctx, insertStmtBuffer.String())
		if err != nil {
			return chunkStart, fmt.Errorf("preparing insert command for %d values: %v", len(lastValues), err)
		}
		ilv := make([]interface{}, 0, len(lastValues))
		for _, v := range lastValues {
			ilv = append(ilv, v)
		}
		_, err = insertStmt.ExecContext(ctx, ilv...)
		if err != nil {
			return chunkStart, fmt.Errorf("inserting the last %d values: %v", len(lastValues), err)
		}
		err = insertStmt.Close()
		if err != nil {
			return chunkEnd, fmt.Errorf("closing insert command for %d values: %v", len(lastValues), err)
		}
	}
	return chunkEnd, nil
}

func (a *adapter) ListValues(ctx context.Context) (map[int]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, value FROM featureValues`)
	if err != nil {
		return nil, err
	}
	result := make(map[int]string)
	for rows.Next() {
		var id int
		var value string
		err = rows.Scan(&id, &value)
		if err != nil {
			return nil, err
		}
		result[id] = value
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}
	err = rows.Close()
	return result, err
}

func (a *adapter) AddSamples(ctx context.Context, rawSamples []map[string]int, featureColumns []string) (int, error) {
	var (
		chunkStart       = 0
		chunkEnd         = MaxSampleInsertionsPerStatement
		insertStmtBuffer bytes.Buffer
	)
	if len(rawSamples) == 0 {
		return 0, nil
	}
	if len(featureColumns) == 0 {
		return 0, fmt.Errorf("no features to store")
	}
	if len(rawSamples) > MaxSampleInsertionsPerStatement {
		insertStmtBuffer.WriteString(sampleInsertStmtStart(featureColumns))
		for i := 0; i < MaxSampleInsertionsPerStatement; i++ {
			appendSamplePlaceholders(&insertStmtBuffer, i, len(featureColumns))
		}
		insertStmt, err := a.db.PrepareContext(ctx, insertStmtBuffer.String())
		if err != nil {
			return 0, fmt.Errorf("preparing insert command for %d samples: %v", MaxSampleInsertionsPerStatement, err)
		}
		for c := 0; c < len(rawSamples)/MaxSampleInsertionsPerStatement; c++ {
			irs := make([]interface{}, 0, MaxSampleInsertionsPerStatement*len(featureColumns))
			for _, rs := range rawSamples[chunkStart:chunkEnd] {
				for _, f := range featureColumns {
					irs = append(irs, rs[f])
				}
			}
			_, err = insertStmt.ExecContext(ctx, irs...)
			if err != nil {
				return chunkStart, fmt.Errorf("inserting the %dth %d samples: %v", c+1, MaxSampleInsertionsPerStatement, err)
			}
			chunkStart += MaxSampleInsertionsPerStatement
			chunkEnd += MaxSampleInsertionsPerStatement
		}
		err = insertStmt.Close()
		if err != nil {
			return chunkStart, fmt.Errorf("closing insert command for %d samples: %v", MaxSampleInsertionsPerStatement, err)
		}
	}
	chunkEnd = len(rawSamples)
	lastRawSamples := rawSamples[chunkStart:chunkEnd]
	if len(lastRawSamples) > 0 {
		insertStmtBuffer = bytes.Buffer{}
		insertStmtBuffer.WriteString(sampleInsertStmtStart(featureColumns))
		for i := 0; i < len(lastRawSamples); i++ {
			appendSamplePlaceholders(&insertStmtBuffer, i, len(featureColumns))
		}
		insertStmt, err := a.db.PrepareContext(ctx, insertStmtBuffer.String())
		if err != nil {
			return chunkStart, fmt.Errorf("preparing insert command for %d samples: %v", len(lastRawSamples), err)
		}
		ilrs := make([]interface{}, 0, len(lastRawSamples)*len(featureColumns))
		for _, rs := range lastRawSamples {
			for _, f := range featureColumns {
				ilrs = append(ilrs, rs[f])
			}
		}
		_, err = insertStmt.ExecContext(ctx, ilrs...)
		if err != nil {
			return chunkStart, fmt.Errorf("inserting the last %d samples: %v", len(lastRawSamples), err)
		}
		err = insertStmt.Close()
		if err != nil {
			return chunkEnd, fmt.Errorf("closing insert command for %d samples: %v", len(lastRawSamples), err)
		}
	}
	return chunkEnd, nil
}

func (a *adapter) ListSamples(ctx context.Context, criteria []*sqldataset.FeatureCriterion, featureColumns []string) ([]map[string]int, error) {
	var result []map[string]int
	err := a.IterateOnSamples(
		ctx,
		criteria,
		featureColumns,
		func(_ int, rawSample map[string]int) (bool, error) {
			result = append(result, rawSample)
			return true, nil
		})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *adapter) IterateOnSamples(ctx context.Context, criteria []*sqldataset.FeatureCriterion, featureColumns []string, lambda func(int, map[string]int) (bool, error)) error {
	var queryBuffer bytes.Buffer
	var whereValues []interface{}
	queryBuffer.WriteString(`SELECT "`)
	queryBuffer.WriteString(strings.Join(featureColumns, `", "`))
	queryBuffer.WriteString(`" FROM samples`)
	if len(criteria) > 0 {
		var whereClause string
		whereClause, whereValues = buildWhereClause(criteria)
		queryBuffer.WriteString(whereClause)
	}
	queryBuffer.WriteString(` ORDER BY id`)
	rows, err := a.db.QueryContext(ctx, queryBuffer.String(), whereValues...)
	if err != nil {
		return err
	}
	for j := 0; rows.Next(); j++ {
		rawSample := make(map[string]int)
		refs := make([]int, len(featureColumns))
		values := make([]interface{}, 0, len(featureColumns))
		for i := range refs {
			values = append(values, &refs[i])
		}
		err = rows.Scan(values...)
		if err != nil {
			return err
		}
		for i, c := range featureColumns {
			rawSample[c] = refs[i]
		}
		ok, err := lambda(j, rawSample)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	err = rows.Err()
	if err != nil {
		return err
	}
	err = rows.Close()
	return err
}

func (a *adapter) CountSamples(ctx context.Context, criteria []*sqldataset.FeatureCriterion) (int, error) {
	var queryBuffer bytes.Buffer
	var whereValues []interface{}
	queryBuffer.WriteString(`SELECT COUNT(*) FROM samples`)
	if len(criteria) > 0 {
		var whereClause string
		whereClause, whereValues = buildWhereClause(criteria)
		queryBuffer.WriteString(whereClause)
	}
	rows, err := a.db.QueryContext(ctx, queryBuffer.String(), whereValues...)
	if err != nil {
		return 0, err
	}
	if !rows.Next() {
		return 0, rows.Err()
	}
	var count int
	err = rows.Scan(&count)
	if err != nil {
		return 0, err
	}
	err = rows.Close()
	return count, err
}

func (a *adapter) ListSampleFeatureValues(ctx context.Context, fc string, criteria []*sqldataset.FeatureCriterion) ([]int, error) {
	var queryBuffer bytes.Buffer
	var whereValues []interface{}
	queryBuffer.WriteString(fmt.Sprintf(`SELECT "%s" FROM samples`, fc))
	if len(criteria) > 0 {
		var whereClause string
		whereClause, whereValues = buildWhereClause(criteria)
		queryBuffer.WriteString(whereClause)
	}
	queryBuffer.WriteString(fmt.Sprintf(` GROUP BY "%s" ORDER BY MIN(id)`, fc))
	rows, err := a.db.QueryContext(ctx, queryBuffer.String(), whereValues...)
	if err != nil {
		return nil, err
	}
	var result []int
	for rows.Next() {
		var value int
		err = rows.Scan(&value)
		if err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}
	err = rows.Close()
	return result, err
}

func (a *adapter) CountSampleFeatureValues(ctx context.Context, fc string, criteria []*sqldataset.FeatureCriterion) (map[int]int, error) {
	var queryBuffer bytes.Buffer
	var whereValues []interface{}
	queryBuffer.WriteString(fmt.Sprintf(`SELECT "%s", COUNT("%s") FROM samples`, fc, fc))
	if len(criteria) > 0 {
		var whereClause string
		whereClause, whereValues = buildWhereClause(criteria)
		queryBuffer.WriteString(whereClause)
	}
	queryBuffer.WriteString(fmt.Sprintf(` GROUP BY "%s"`, fc))
	rows, err := a.db.QueryContext(ctx, queryBuffer.String(), whereValues...)
	if err != nil {
		return nil, err
	}
	result := make(map[int]int)
	for rows.Next() {
		var value int
		var count int
		err = rows.Scan(&value, &count)
		if err != nil {
			return nil, err
		}
		result[value] = count
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}
	err = rows.Close()
	return result, err
}

func sampleInsertStmtStart(featureColumns []string) string {
	var buf bytes.Buffer
	buf.WriteString(`INSERT INTO samples ("`)
	buf.WriteString(strings.Join(featureColumns, `", "`))
	buf.WriteString(`") VALUES`)
	return buf.String()
}

func appendSamplePlaceholders(buf *bytes.Buffer, row, columns int) {
	if row > 0 {
		buf.WriteString(",")
	}
	buf.WriteString(fmt.Sprintf(" ($%d", row*columns+1))
	for j := 1; j < columns; j++ {
		buf.WriteString(fmt.Sprintf(", $%d", row*columns+j+1))
	}
	buf.WriteString(`)`)
}

func buildWhereClause(criteria []*sqldataset.FeatureCriterion) (string, []interface{}) {
	if len(criteria) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	values := make([]interface{}, 0, len(criteria))
	buf.WriteString(" WHERE ")
	buf.WriteString(fmt.Sprintf(`"%s" = $1`, criteria[0].FeatureColumn))
	values = append(values, criteria[0].Value)
	for i := 1; i < len(criteria); i++ {
		buf.WriteString(fmt.Sprintf(` AND "%s" = $%d`, criteria[i].FeatureColumn, i+1))
		values = append(values, criteria[i].Value)
	}
	return buf.String(), values
}
