//go:build unit
// +build unit

package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qforge-dev/phase-engine/core"
)

func setUpFileDB(t *testing.T, dir string) (*FileDB, *core.SystemComponents) {
	s := core.SCWithUnimplementedContainer()
	_, err := core.NewJobManager(&core.NormalJob{})
	assert.Nil(t, err)

	d := &FileDB{}
	assert.Nil(t, d.Setup(make(core.DBChan), &core.Conf{ResultDir: dir}))
	return d, s
}

func testFileJob(t *testing.T, id string) core.Job {
	jd := core.NewJobData()
	jd.ID = id
	jd.QASM = "qreg q[1];\ncreg c[1];\nh q[0];\nmeasure q[0] -> c[0];\n"
	jd.Shots = 100
	jd.Status = core.SUCCEEDED
	jd.JobType = core.NORMAL_JOB
	jd.Result.Counts = core.Counts{"0": 52, "1": 48}
	jc, err := core.NewJobContext()
	assert.Nil(t, err)
	return (&core.NormalJob{}).New(jd, jc)
}

func TestFileDBPersistsRecords(t *testing.T) {
	dir := t.TempDir()
	d, s := setUpFileDB(t, dir)
	defer s.TearDown()

	j := testFileJob(t, "file-test")
	assert.Nil(t, d.Insert(j))

	raw, err := os.ReadFile(filepath.Join(dir, "file-test.json"))
	assert.Nil(t, err)
	assert.Contains(t, string(raw), `"status": "succeeded"`)
	assert.Contains(t, string(raw), `"shots": 100`)

	// a fresh FileDB over the same dir reloads the job from disk
	d2, _ := setUpFileDB(t, dir)
	got, err := d2.Get("file-test")
	assert.Nil(t, err)
	assert.Equal(t, core.SUCCEEDED, got.JobData().Status)
	assert.Equal(t, 100, got.JobData().Shots)
	assert.Equal(t, core.Counts{"0": 52, "1": 48}, got.JobData().Result.Counts)
}

func TestFileDBGetMissing(t *testing.T) {
	d, s := setUpFileDB(t, t.TempDir())
	defer s.TearDown()

	_, err := d.Get("missing")
	assert.EqualError(t, err, "not found missing")
}

func TestFileDBDelete(t *testing.T) {
	dir := t.TempDir()
	d, s := setUpFileDB(t, dir)
	defer s.TearDown()

	j := testFileJob(t, "delete-test")
	assert.Nil(t, d.Insert(j))
	assert.Nil(t, d.Delete("delete-test"))

	_, err := os.Stat(filepath.Join(dir, "delete-test.json"))
	assert.True(t, os.IsNotExist(err))
	assert.EqualError(t, d.Delete("delete-test"), "failed to find delete-test")
}

func TestFileDBWithoutResultDir(t *testing.T) {
	d, s := setUpFileDB(t, "")
	defer s.TearDown()

	j := testFileJob(t, "memory-only-test")
	assert.Nil(t, d.Insert(j))
	got, err := d.Get("memory-only-test")
	assert.Nil(t, err)
	assert.Equal(t, 100, got.JobData().Shots)
	assert.Nil(t, d.Delete("memory-only-test"))
	_, err = d.Get("memory-only-test")
	assert.EqualError(t, err, "not found memory-only-test")
}

func TestFileDBBrokenRecord(t *testing.T) {
	dir := t.TempDir()
	d, s := setUpFileDB(t, dir)
	defer s.TearDown()

	assert.Nil(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))
	_, err := d.Get("broken")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken record of broken")
}

func TestFileDBInnerJobIDSet(t *testing.T) {
	d, s := setUpFileDB(t, "")
	defer s.TearDown()

	assert.False(t, d.ExistInInnerJobIDSet("inner"))
	d.AddToInnerJobIDSet("inner")
	assert.True(t, d.ExistInInnerJobIDSet("inner"))
	d.RemoveFromInnerJobIDSet("inner")
	assert.False(t, d.ExistInInnerJobIDSet("inner"))
}
