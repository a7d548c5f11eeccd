package dfk

// DataHandle represents one of a task's declared outputs: a file or other
// artifact whose existence is promised by the task but is not itself
// computed by the kernel. It settles when the owning task settles, with the
// same error (if any), and a value of the declared output name.
type DataHandle struct {
	name   string
	parent *Handle
}

func newDataHandle(name string, parent *Handle) *DataHandle {
	return &DataHandle{name: name, parent: parent}
}

// Name returns the declared output name, as given in the Submit kwargs'
// outputs list.
func (d *DataHandle) Name() string { return d.name }

// Done reports whether the owning task has settled.
func (d *DataHandle) Done() bool { return d.parent.Done() }

// Result blocks until the owning task settles, then returns the output
// name, or the task's error if it failed.
func (d *DataHandle) Result() (any, error) {
	_, err := d.parent.Result()
	if err != nil {
		return nil, err
	}
	return d.name, nil
}

// Exception returns the owning task's settled error, if any.
func (d *DataHandle) Exception() error { return d.parent.Exception() }

// AddDoneCallback registers cb to run when the owning task settles.
func (d *DataHandle) AddDoneCallback(cb func(value any, err error)) {
	d.parent.AddDoneCallback(func(_ any, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(d.name, nil)
	})
}
